package testutils

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/stacks/pkg/index"
)

// MockIndexDriver is a test index driver
type MockIndexDriver struct {
	Records []index.Record

	// Results is returned from Query, truncated to topK
	Results []index.ScoredRecord

	// AddErr, when set, fails every Add call
	AddErr error

	// AddFailOn, when set, fails Add for any record whose contents
	// contain the substring
	AddFailOn string

	// QueryErr, when set, fails every Query call
	QueryErr error
}

func NewMockIndexDriver() *MockIndexDriver {
	return &MockIndexDriver{}
}

func (m *MockIndexDriver) Add(_ context.Context, records []index.Record) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	if m.AddFailOn != "" {
		for _, r := range records {
			if strings.Contains(r.Contents, m.AddFailOn) {
				return fmt.Errorf("refusing to store %q", m.AddFailOn)
			}
		}
	}
	m.Records = append(m.Records, records...)
	return nil
}

func (m *MockIndexDriver) Query(_ context.Context, _ []float32, topK int, minScore float32) ([]index.ScoredRecord, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	results := make([]index.ScoredRecord, 0, len(m.Results))
	for _, r := range m.Results {
		if r.Score > minScore {
			results = append(results, r)
		}
	}
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MockIndexDriver) DeleteBySource(_ context.Context, fileName string) (int, error) {
	kept := m.Records[:0]
	removed := 0
	for _, r := range m.Records {
		if r.FileName == fileName {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.Records = kept
	return removed, nil
}

func (m *MockIndexDriver) DeleteAll(_ context.Context) (int, error) {
	removed := len(m.Records)
	m.Records = nil
	return removed, nil
}

func (m *MockIndexDriver) Close() error {
	return nil
}
