package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orbitpath/orbitpath-backend/internal/app"
	"github.com/orbitpath/orbitpath-backend/internal/apperr"
	"github.com/orbitpath/orbitpath-backend/internal/roleplay"
	"github.com/orbitpath/orbitpath-backend/internal/types"
)

type seedFile struct {
	Quizzes []seedQuiz   `yaml:"quizzes"`
	Careers []seedCareer `yaml:"careers"`
	Scripts []seedScript `yaml:"scripts"`
}

type seedQuiz struct {
	Slug        string         `yaml:"slug"`
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Published   bool           `yaml:"published"`
	Questions   []seedQuestion `yaml:"questions"`
}

type seedQuestion struct {
	Type      string                 `yaml:"type"`
	Title     string                 `yaml:"title"`
	Content   string                 `yaml:"content"`
	Dimension string                 `yaml:"dimension"`
	Weight    float64                `yaml:"weight"`
	Settings  map[string]interface{} `yaml:"settings"`
	Options   []seedOption           `yaml:"options"`
}

type seedOption struct {
	Content   string  `yaml:"content"`
	Dimension string  `yaml:"dimension"`
	Weight    float64 `yaml:"weight"`
}

type seedCareer struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Galaxy      string             `yaml:"galaxy"`
	Popularity  int                `yaml:"popularity"`
	Dimensions  map[string]float64 `yaml:"dimensions"`
}

type seedScript struct {
	Slug      string                 `yaml:"slug"`
	Title     string                 `yaml:"title"`
	Summary   string                 `yaml:"summary"`
	Published bool                   `yaml:"published"`
	Content   map[string]interface{} `yaml:"content"`
}

func main() {
	var dir string
	flag.StringVar(&dir, "dir", "seeds", "directory of seed YAML files")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	entries, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		fmt.Printf("list seed files: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Printf("no seed files under %s\n", dir)
		return
	}

	for _, path := range entries {
		if err := loadFile(ctx, application, path); err != nil {
			fmt.Printf("seed %s: %v\n", path, err)
			os.Exit(1)
		}
	}
	application.Services.Career.InvalidateCatalog(ctx)
	fmt.Println("seeding complete")
}

func loadFile(ctx context.Context, application *app.App, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	now := time.Now().UTC()
	for _, sq := range file.Quizzes {
		if err := seedOneQuiz(ctx, application, sq, now); err != nil {
			return err
		}
	}
	if len(file.Careers) > 0 {
		if err := seedCareers(ctx, application, file.Careers, now); err != nil {
			return err
		}
	}
	for _, ss := range file.Scripts {
		if err := seedOneScript(ctx, application, ss, now); err != nil {
			return err
		}
	}
	return nil
}

func seedOneQuiz(ctx context.Context, application *app.App, sq seedQuiz, now time.Time) error {
	if _, err := application.Repos.Quiz.GetBySlug(ctx, nil, sq.Slug); err == nil {
		fmt.Printf("quiz %q already present, skipping\n", sq.Slug)
		return nil
	} else if !apperr.IsNotFound(err) {
		return err
	}

	quiz := &types.Quiz{
		Slug:        sq.Slug,
		Title:       sq.Title,
		Description: sq.Description,
		IsPublished: sq.Published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, q := range sq.Questions {
		question := types.Question{
			Position:  i,
			Type:      q.Type,
			Title:     q.Title,
			Content:   q.Content,
			Dimension: q.Dimension,
			Weight:    q.Weight,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if len(q.Settings) > 0 {
			encoded, err := json.Marshal(q.Settings)
			if err != nil {
				return fmt.Errorf("quiz %q question %d settings: %w", sq.Slug, i, err)
			}
			question.Settings = encoded
		}
		for j, o := range q.Options {
			question.Options = append(question.Options, types.Option{
				Position:  j,
				Content:   o.Content,
				Dimension: o.Dimension,
				Weight:    o.Weight,
				CreatedAt: now,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	if _, err := application.Repos.Quiz.Create(ctx, nil, quiz); err != nil {
		return fmt.Errorf("create quiz %q: %w", sq.Slug, err)
	}
	fmt.Printf("seeded quiz %q with %d questions\n", sq.Slug, len(quiz.Questions))
	return nil
}

func seedCareers(ctx context.Context, application *app.App, seeds []seedCareer, now time.Time) error {
	existing, err := application.Repos.Career.ListAll(ctx, nil)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(existing))
	for _, c := range existing {
		present[c.Name] = true
	}

	var rows []*types.Career
	for _, sc := range seeds {
		if present[sc.Name] {
			continue
		}
		encoded, err := json.Marshal(sc.Dimensions)
		if err != nil {
			return fmt.Errorf("career %q dimensions: %w", sc.Name, err)
		}
		rows = append(rows, &types.Career{
			Name:        sc.Name,
			Description: sc.Description,
			Galaxy:      sc.Galaxy,
			Popularity:  sc.Popularity,
			Dimensions:  encoded,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := application.Repos.Career.Create(ctx, nil, rows); err != nil {
		return fmt.Errorf("create careers: %w", err)
	}
	fmt.Printf("seeded %d careers\n", len(rows))
	return nil
}

func seedOneScript(ctx context.Context, application *app.App, ss seedScript, now time.Time) error {
	if _, err := application.Repos.RoleplayScript.GetBySlug(ctx, nil, ss.Slug); err == nil {
		fmt.Printf("script %q already present, skipping\n", ss.Slug)
		return nil
	} else if !apperr.IsNotFound(err) {
		return err
	}

	encoded, err := json.Marshal(ss.Content)
	if err != nil {
		return fmt.Errorf("script %q content: %w", ss.Slug, err)
	}
	// Reject broken scene graphs at seed time, not at play time.
	if _, err := roleplay.ParseScript(encoded); err != nil {
		return fmt.Errorf("script %q invalid: %w", ss.Slug, err)
	}

	script := &types.RoleplayScript{
		Slug:        ss.Slug,
		Title:       ss.Title,
		Summary:     ss.Summary,
		IsPublished: ss.Published,
		Content:     encoded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := application.Repos.RoleplayScript.Create(ctx, nil, script); err != nil {
		return fmt.Errorf("create script %q: %w", ss.Slug, err)
	}
	fmt.Printf("seeded roleplay script %q\n", ss.Slug)
	return nil
}
