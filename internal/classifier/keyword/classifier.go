// Package keyword classifies responses in-process by matching them against
// an organisation's configured domain keywords.
package keyword

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/kiranshivaraju/venter/internal/artifact"
	"github.com/kiranshivaraju/venter/internal/textnorm"
	"github.com/kiranshivaraju/venter/pkg/models"
)

// UnmatchedSubCategory holds responses that hit none of a domain's keywords.
const UnmatchedSubCategory = "Unmatched"

// ErrNoKeywords is returned when the organisation has no keyword config for
// the artifact's proposal.
var ErrNoKeywords = errors.New("no domain keywords configured")

// textColumns are tried in order to locate the response text.
var textColumns = []string{"response", "responses", "text", "complaint_description"}

const domainColumn = "domain"

// Classifier implements models.Classifier for the keyword variant. Each
// keyword of a domain is one category, in configured order. A response is
// filed under every category whose keyword it contains; responses matching
// none go to the Novel bucket.
type Classifier struct{}

// New creates a keyword classifier.
func New() *Classifier {
	return &Classifier{}
}

func (c *Classifier) Name() string { return "keyword" }

func (c *Classifier) Classify(ctx context.Context, req models.ClassifyRequest) (*models.Result, error) {
	if len(req.Domains) == 0 {
		return nil, ErrNoKeywords
	}

	path, err := stage(req.InputPath, req.ScratchDir)
	if err != nil {
		return nil, err
	}
	sheet, err := artifact.ReadSheet(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	textCol := 0
	for _, name := range textColumns {
		if i := sheet.Column(name); i >= 0 {
			textCol = i
			break
		}
	}
	domainCol := -1
	if req.DomainPresent {
		domainCol = sheet.Column(domainColumn)
	}

	result := &models.Result{}
	for _, dk := range req.Domains {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInferenceTimeout, err)
		}
		m := newDomainMatcher(dk.Keywords)
		var unmatched []string
		for _, rec := range sheet.Records {
			text := strings.TrimSpace(sheet.Value(rec, textCol))
			if text == "" {
				continue
			}
			if domainCol >= 0 && !strings.EqualFold(strings.TrimSpace(sheet.Value(rec, domainCol)), dk.Domain) {
				continue
			}
			if !m.assign(text) {
				unmatched = append(unmatched, text)
			}
		}
		result.Domains = append(result.Domains, m.domain(dk.Domain, unmatched))
	}
	return result, nil
}

// TopCategories is not offered by the keyword classifier.
func (c *Classifier) TopCategories(_ context.Context, _ []string, _ int) ([]models.RankedCategories, error) {
	return nil, fmt.Errorf("%w: keyword classifier has no top-k model", models.ErrClassifierUnavailable)
}

// stage copies the input into the request's scratch directory so the
// classifier never reads the upload itself. Without a scratch directory the
// input is read in place.
func stage(inputPath, scratchDir string) (string, error) {
	if scratchDir == "" {
		return inputPath, nil
	}
	data, err := artifact.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	staged := filepath.Join(scratchDir, filepath.Base(inputPath))
	if err := artifact.WriteFileAtomic(staged, data); err != nil {
		return "", fmt.Errorf("stage input: %w", err)
	}
	return staged, nil
}

type domainMatcher struct {
	categories []models.Category
	// byKeyword maps a dictionary index to the categories sharing that
	// normalised keyword.
	byKeyword [][]int
	matcher   *ahocorasick.Matcher
}

func newDomainMatcher(keywords []string) *domainMatcher {
	m := &domainMatcher{categories: make([]models.Category, len(keywords))}
	index := make(map[string]int)
	var dict []string
	for i, kw := range keywords {
		m.categories[i] = models.Category{Name: kw, Responses: []models.Response{}}
		padded := textnorm.Padded(kw)
		if padded == "" {
			continue
		}
		j, ok := index[padded]
		if !ok {
			j = len(dict)
			index[padded] = j
			dict = append(dict, padded)
			m.byKeyword = append(m.byKeyword, nil)
		}
		m.byKeyword[j] = append(m.byKeyword[j], i)
	}
	if len(dict) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(dict)
	}
	return m
}

// assign appends text to every category whose keyword occurs in it and
// reports whether any did.
func (m *domainMatcher) assign(text string) bool {
	if m.matcher == nil {
		return false
	}
	hits := m.matcher.Match([]byte(textnorm.Padded(text)))
	seen := make(map[int]bool, len(hits))
	for _, h := range hits {
		if h >= len(m.byKeyword) {
			continue
		}
		for _, ci := range m.byKeyword[h] {
			if seen[ci] {
				continue
			}
			seen[ci] = true
			m.categories[ci].Responses = append(m.categories[ci].Responses,
				models.Response{Text: text, Score: models.NoScore})
		}
	}
	return len(seen) > 0
}

func (m *domainMatcher) domain(name string, unmatched []string) models.Domain {
	d := models.Domain{Name: name, Categories: m.categories}
	if len(unmatched) > 0 {
		d.Categories = append(d.Categories, models.Category{
			Name:  models.NovelCategory,
			Novel: []models.SubCategory{{Name: UnmatchedSubCategory, Texts: unmatched}},
		})
	}
	return d
}

var _ models.Classifier = (*Classifier)(nil)
