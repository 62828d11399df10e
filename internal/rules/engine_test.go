package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Classify(t *testing.T) {
	e := Default()

	tests := []struct {
		desc string
		want string
	}{
		{"Salary payment via bank", "Salaries"},
		{"PAYROLL March", "Salaries"},
		{"Intern stipend", "Salaries"},
		{"Dell laptop", "Assets"},
		{"Office chair", "Assets"},
		{"AWS hosting", "Software"},
		{"GitHub Team plan", "Software"},
		{"Flight to Delhi", "Travel"},
		{"Uber to airport", "Travel"},
		{"Google Ads campaign", "Marketing"},
		{"Office wifi bill", "Utilities"},
		{"Electricity", "Utilities"},
		{"Team lunch", "Other"},
		{"", "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Classify(tt.desc))
		})
	}
}

func TestDefault_DeclarationOrderWins(t *testing.T) {
	e := Default()

	// Salaries is declared before Software.
	assert.Equal(t, "Salaries", e.Classify("aws salary reimbursement"))
	// Substring match: "ola" inside "cola" is still Travel.
	assert.Equal(t, "Travel", e.Classify("Coca cola crate"))
	// Assets precedes Marketing, so "desk" beats "google".
	assert.Equal(t, "Assets", e.Classify("Google standing desk"))
}

func TestClassify_Deterministic(t *testing.T) {
	e := Default()
	for i := 0; i < 50; i++ {
		require.Equal(t, "Software", e.Classify("Zoom subscription"))
	}
}

func TestClassify_UnicodeFolding(t *testing.T) {
	e, err := NewEngine([]byte(`
categories:
  - name: Food
    keywords: [café]
`))
	require.NoError(t, err)
	assert.Equal(t, "Food", e.Classify("CAFÉ NOIR"))
	assert.Equal(t, "Food", e.Classify("Le Café"))
	assert.Equal(t, "Other", e.Classify("Cafe without accent"))
}

func TestCategories(t *testing.T) {
	assert.Equal(t,
		[]string{"Salaries", "Assets", "Software", "Travel", "Marketing", "Utilities", "Other"},
		Default().Categories())
}

func TestNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad yaml", "categories: [", "failed to parse YAML rules"},
		{"empty name", "categories:\n  - name: ''\n    keywords: [x]\n", "name cannot be empty"},
		{"reserved name", "categories:\n  - name: other\n    keywords: [x]\n", "reserved"},
		{"duplicate", "categories:\n  - name: A\n    keywords: [x]\n  - name: A\n    keywords: [y]\n", "duplicate name"},
		{"no keywords", "categories:\n  - name: A\n", "at least one keyword"},
		{"blank keyword", "categories:\n  - name: A\n    keywords: ['  ']\n", "keyword 0 cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	e, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "Travel", e.Classify("flight"))

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: Cloud\n    keywords: [AWS]\n"), 0o644))

	e, err = LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Cloud", e.Classify("aws bill"))
	assert.Equal(t, "Other", e.Classify("flight"))

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
