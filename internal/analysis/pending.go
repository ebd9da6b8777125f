package analysis

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	graderrors "github.com/Sankatt/cruisegrader/internal/errors"
)

// snippetLimit bounds how much of a test body lands in the review log.
const snippetLimit = 200

// PendingEntry is one unmatched test method queued for manual review. New
// patterns harvested from these entries feed back into patterns.yaml.
type PendingEntry struct {
	Student    string `yaml:"student"`
	TestMethod string `yaml:"test_method"`
	TestCode   string `yaml:"test_code"`
	Status     string `yaml:"status"`
	Date       string `yaml:"date"`
	Reason     string `yaml:"reason"`
}

// AppendPendingReview records unmatched test methods in the review file,
// preserving existing entries. The file is YAML keyed by sequential
// candidate ids.
func AppendPendingReview(path, student string, methods []TestMethod) error {
	if len(methods) == 0 {
		return nil
	}

	pending := make(map[string]PendingEntry)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &pending); err != nil {
			return graderrors.Wrap(err, "parse pending-review file")
		}
	}

	date := time.Now().Format("2006-01-02")
	for _, method := range methods {
		snippet := method.Body
		if len(snippet) > snippetLimit {
			snippet = snippet[:snippetLimit]
		}
		id := fmt.Sprintf("test_candidate_%03d", len(pending)+1)
		pending[id] = PendingEntry{
			Student:    student,
			TestMethod: method.Name,
			TestCode:   snippet,
			Status:     "NEEDS_MANUAL_REVIEW",
			Date:       date,
			Reason:     "test method found but no patterns matched",
		}
	}

	data, err := yaml.Marshal(pending)
	if err != nil {
		return graderrors.Newf("encode pending-review file: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return graderrors.Environmentf("write pending-review file: %v", err)
	}
	return nil
}
