package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/grammar-annotation-backend/internal/modules/annotation"
)

type questionInput struct {
	ID                      string `json:"id" yaml:"id" validate:"max=128"`
	Content                 string `json:"content" yaml:"content" validate:"max=20000"`
	QuestionType            string `json:"question_type" yaml:"question_type" validate:"required,question_type"`
	Difficulty              string `json:"difficulty" yaml:"difficulty" validate:"omitempty,difficulty"`
	ExistingAnnotationCount int    `json:"existing_annotation_count" yaml:"existing_annotation_count" validate:"min=0"`
}

type questionFile struct {
	Questions []questionInput `yaml:"questions" validate:"required,min=1,dive"`
}

type suggestResult struct {
	QuestionID  string                  `json:"question_id" yaml:"question_id"`
	Suggestions []annotation.Suggestion `json:"suggestions" yaml:"suggestions"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		_, ok := annotation.ParseQuestionType(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("difficulty", func(fl validator.FieldLevel) bool {
		_, ok := annotation.ParseDifficulty(fl.Field().String())
		return ok
	})
	return v
}

func newSuggestCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Score a file of questions (JSON or YAML) against the catalog",
		Example: `  annotate suggest -i questions.yaml
  cat questions.json | annotate suggest -i - -o text --fusion`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd, v)
		},
	}
	f := cmd.Flags()
	f.StringP("input", "i", "", `questions file, "-" for stdin`)
	f.StringP("output", "o", "json", "output format: json, yaml or text")
	f.Int("concurrency", 0, "parallel scorers (default GOMAXPROCS)")
	f.Int("top-k", 0, "maximum suggestions per question")
	f.Float64("confidence-threshold", 0, "minimum confidence to keep a candidate")
	f.Float64("auto-apply-threshold", 0, "minimum confidence for AUTO_APPLY")
	f.Bool("fusion", false, "blend in the second-opinion scorer")
	_ = cmd.MarkFlagRequired("input")

	_ = v.BindPFlag("input", f.Lookup("input"))
	_ = v.BindPFlag("output", f.Lookup("output"))
	_ = v.BindPFlag("batch_concurrency", f.Lookup("concurrency"))
	_ = v.BindPFlag("top_k", f.Lookup("top-k"))
	_ = v.BindPFlag("confidence_threshold", f.Lookup("confidence-threshold"))
	_ = v.BindPFlag("auto_apply_threshold", f.Lookup("auto-apply-threshold"))
	_ = v.BindPFlag("fusion_enabled", f.Lookup("fusion"))
	return cmd
}

func runSuggest(cmd *cobra.Command, v *viper.Viper) error {
	questions, err := readQuestions(cmd.InOrStdin(), v.GetString("input"))
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(v)
	if err != nil {
		return err
	}
	cfg, err := loadEngineConfig(v)
	if err != nil {
		return err
	}
	engine, err := annotation.NewEngine(catalog, cfg)
	if err != nil {
		return err
	}

	out, err := engine.SuggestBatch(cmd.Context(), questions, v.GetInt("batch_concurrency"))
	if err != nil {
		return err
	}
	results := make([]suggestResult, len(questions))
	for i, q := range questions {
		results[i] = suggestResult{QuestionID: q.ID, Suggestions: out[i]}
	}
	return writeResults(cmd.OutOrStdout(), strings.ToLower(v.GetString("output")), results)
}

// readQuestions accepts {"questions": [...]} or a bare list. JSON is read by
// the YAML decoder.
func readQuestions(stdin io.Reader, path string) ([]annotation.Question, error) {
	var (
		data []byte
		err  error
	)
	switch strings.TrimSpace(path) {
	case "":
		return nil, errors.New("--input is required")
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	var doc questionFile
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Questions) == 0 {
		var list []questionInput
		if lerr := yaml.Unmarshal(data, &list); lerr != nil {
			return nil, fmt.Errorf("decode questions: %w", lerr)
		}
		doc.Questions = list
	}
	if err := newValidator().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid questions: %w", err)
	}

	out := make([]annotation.Question, len(doc.Questions))
	for i, in := range doc.Questions {
		qt, _ := annotation.ParseQuestionType(in.QuestionType)
		d, _ := annotation.ParseDifficulty(in.Difficulty)
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		out[i] = annotation.Question{
			ID:                      id,
			Content:                 in.Content,
			Type:                    qt,
			Difficulty:              d,
			ExistingAnnotationCount: in.ExistingAnnotationCount,
		}
	}
	return out, nil
}

func writeResults(w io.Writer, format string, results []suggestResult) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(results)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUESTION\tKNOWLEDGE POINT\tCONFIDENCE\tDECISION\tREASONING")
		for _, r := range results {
			if len(r.Suggestions) == 0 {
				fmt.Fprintf(tw, "%s\t-\t-\t-\tno match\n", r.QuestionID)
				continue
			}
			for _, s := range r.Suggestions {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", r.QuestionID, s.KnowledgePointID, s.Confidence, s.Decision, s.Reasoning)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
