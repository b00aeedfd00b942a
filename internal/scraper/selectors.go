package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

type SelectorConfig struct {
	Heading     HeadingSelectors `json:"heading"`
	Table       TableSelectors   `json:"table"`
	Columns     ColumnLayout     `json:"columns"`
	CodePattern string           `json:"code_pattern"` // optional, matched against the normalized code
}

// HeadingSelectors identify the heading that introduces the code table.
type HeadingSelectors struct {
	Selector string `json:"selector"` // e.g., "h2"
	Pattern  string `json:"pattern"`  // case-insensitive regex matched against the heading text
}

type TableSelectors struct {
	Selector    string `json:"selector"`     // e.g., "table"
	Row         string `json:"row"`          // e.g., "tr"
	Cell        string `json:"cell"`         // e.g., "td"
	CodeElement string `json:"code_element"` // element wrapping the code inside its cell
	MinCells    int    `json:"min_cells"`
}

// ColumnLayout holds the zero-based cell index of each column.
type ColumnLayout struct {
	Reward int `json:"reward"`
	Added  int `json:"added"`
	Code   int `json:"code"`
	Expiry int `json:"expiry"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
// This supports loading from embedded data via go:embed.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if err := config.Validate(); err != nil {
		return SelectorConfig{}, err
	}

	return config, nil
}

// Validate checks that every selector is present and every pattern compiles.
func (c SelectorConfig) Validate() error {
	if c.Heading.Selector == "" || c.Heading.Pattern == "" {
		return fmt.Errorf("selector config: heading selector and pattern are required")
	}
	if c.Table.Selector == "" || c.Table.Row == "" || c.Table.Cell == "" {
		return fmt.Errorf("selector config: table, row and cell selectors are required")
	}
	if _, err := regexp.Compile("(?i)" + c.Heading.Pattern); err != nil {
		return fmt.Errorf("selector config: invalid heading pattern: %w", err)
	}
	if c.CodePattern != "" {
		if _, err := regexp.Compile(c.CodePattern); err != nil {
			return fmt.Errorf("selector config: invalid code pattern: %w", err)
		}
	}

	cols := []int{c.Columns.Reward, c.Columns.Added, c.Columns.Code, c.Columns.Expiry}
	for _, col := range cols {
		if col < 0 {
			return fmt.Errorf("selector config: column indexes must not be negative")
		}
		if col >= c.Table.MinCells {
			return fmt.Errorf("selector config: column index %d is outside min_cells %d", col, c.Table.MinCells)
		}
	}
	return nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
// The embedded selectors.json should be preferred.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Heading: HeadingSelectors{
			Selector: "h2",
			Pattern:  "Every Borderlands 4 SHiFT Code for Golden Keys",
		},
		Table: TableSelectors{
			Selector:    "table",
			Row:         "tr",
			Cell:        "td",
			CodeElement: "code",
			MinCells:    4,
		},
		Columns: ColumnLayout{
			Reward: 0,
			Added:  1,
			Code:   2,
			Expiry: 3,
		},
		CodePattern: `^[A-Z0-9]{5}(-[A-Z0-9]{5}){4}$`,
	}
}
