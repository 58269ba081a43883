// Package render turns statement snapshots into HTML and PDF documents.
package render

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/shopspring/decimal"
)

//go:embed templates/statement.html
var templateFS embed.FS

var statementTemplate = template.Must(
	template.New("statement.html").Funcs(template.FuncMap{
		"money":   formatMoney,
		"percent": func(d decimal.Decimal) string { return d.StringFixed(2) + "%" },
		"date":    func(t time.Time) string { return t.Format("01/02/2006") },
		"inc":     func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/statement.html"),
)

// StatementHTML writes the printable statement of s to w
func StatementHTML(w io.Writer, s *statement.Snapshot) error {
	return statementTemplate.Execute(w, s)
}

// formatMoney renders d as $1,234.50
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	fixed := d.StringFixed(2)
	intPart, frac := fixed[:len(fixed)-3], fixed[len(fixed)-3:]

	grouped := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i := range len(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, intPart[i])
	}
	return sign + "$" + string(grouped) + frac
}
