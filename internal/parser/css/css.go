package css

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parser represents a CSS parser
type Parser struct {
	// Configuration options could be added here
}

// Rule represents a CSS rule
type Rule struct {
	Selectors    []string
	Declarations []*Declaration
}

// Declaration represents a CSS declaration (property-value pair)
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Stylesheet represents a parsed CSS stylesheet
type Stylesheet struct {
	Rules []*Rule
	// Page holds the declarations of every @page rule in source order
	Page []*Declaration
}

// Lookup returns the last @page declaration for property
func (s *Stylesheet) Lookup(property string) (*Declaration, bool) {
	for i := len(s.Page) - 1; i >= 0; i-- {
		if strings.EqualFold(s.Page[i].Property, property) {
			return s.Page[i], true
		}
	}
	return nil, false
}

// NewParser creates a new CSS parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseString parses CSS from a string
func (p *Parser) ParseString(content string) (*Stylesheet, error) {
	return p.Parse(strings.NewReader(content))
}

// Parse parses CSS from an io.Reader
func (p *Parser) Parse(r io.Reader) (*Stylesheet, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stylesheet: %w", err)
	}
	return p.parseCSS(string(content))
}

// parseCSS parses CSS content
func (p *Parser) parseCSS(content string) (*Stylesheet, error) {
	stylesheet := &Stylesheet{
		Rules: []*Rule{},
	}

	content = removeComments(content)
	for _, ruleStr := range splitRules(content) {
		if strings.HasPrefix(ruleStr, "@") {
			head, body, ok := strings.Cut(ruleStr, "{")
			if ok && strings.EqualFold(strings.TrimSpace(head), "@page") {
				stylesheet.Page = append(stylesheet.Page, ParseDeclarations(strings.TrimSuffix(body, "}"))...)
			}
			// @media, @font-face and friends do not affect block heights
			continue
		}
		rule, err := p.parseRule(ruleStr)
		if err != nil {
			continue // Skip invalid rules
		}
		stylesheet.Rules = append(stylesheet.Rules, rule)
	}

	return stylesheet, nil
}

// parseRule parses a single CSS rule
func (p *Parser) parseRule(ruleStr string) (*Rule, error) {
	selectorStr, declarationsStr, ok := strings.Cut(ruleStr, "{")
	if !ok {
		return nil, errors.New("invalid rule format")
	}

	selectors := parseSelectors(strings.TrimSpace(selectorStr))
	if len(selectors) == 0 {
		return nil, errors.New("no selectors found")
	}

	return &Rule{
		Selectors:    selectors,
		Declarations: ParseDeclarations(strings.TrimSuffix(strings.TrimSpace(declarationsStr), "}")),
	}, nil
}

// parseSelectors parses CSS selectors
func parseSelectors(selectorStr string) []string {
	selectors := strings.Split(selectorStr, ",")
	result := make([]string, 0, len(selectors))

	for _, selector := range selectors {
		selector = strings.TrimSpace(selector)
		if selector != "" {
			result = append(result, selector)
		}
	}

	return result
}

// ParseDeclarations parses a declaration block without its braces, as found
// in a style attribute
func ParseDeclarations(declarationsStr string) []*Declaration {
	declarationStrings := strings.Split(declarationsStr, ";")
	result := make([]*Declaration, 0, len(declarationStrings))

	for _, declStr := range declarationStrings {
		property, value, ok := strings.Cut(strings.TrimSpace(declStr), ":")
		if !ok {
			continue
		}

		property = strings.ToLower(strings.TrimSpace(property))
		value = strings.TrimSpace(value)
		if property == "" {
			continue
		}

		important := false
		if strings.HasSuffix(value, "!important") {
			important = true
			value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))
		}

		result = append(result, &Declaration{
			Property:  property,
			Value:     value,
			Important: important,
		})
	}

	return result
}

// removeComments removes CSS comments
func removeComments(content string) string {
	var result strings.Builder
	i := 0

	for i < len(content) {
		if i+1 < len(content) && content[i] == '/' && content[i+1] == '*' {
			commentEnd := strings.Index(content[i+2:], "*/")
			if commentEnd == -1 {
				break
			}
			i += commentEnd + 4
		} else {
			result.WriteByte(content[i])
			i++
		}
	}

	return result.String()
}

// splitRules splits CSS content into individual rules. Nested blocks stay
// inside their enclosing rule.
func splitRules(content string) []string {
	var rules []string
	var currentRule strings.Builder
	braceCount := 0

	for i := 0; i < len(content); i++ {
		char := content[i]

		switch char {
		case '{':
			braceCount++
		case '}':
			if braceCount == 0 {
				continue // stray brace
			}
			braceCount--
			if braceCount == 0 {
				currentRule.WriteByte(char)
				rules = append(rules, strings.TrimSpace(currentRule.String()))
				currentRule.Reset()
				continue
			}
		}

		if braceCount > 0 || !isWhitespace(char) || currentRule.Len() > 0 {
			currentRule.WriteByte(char)
		}
	}

	return rules
}

// isWhitespace checks if a character is whitespace
func isWhitespace(char byte) bool {
	return char == ' ' || char == '\t' || char == '\n' || char == '\r'
}
