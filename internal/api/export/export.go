package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

const (
	CSVMIMEType      = "text/csv;charset=utf-8"
	MarkdownMIMEType = "text/markdown;charset=utf-8"
)

var ErrNoDeveloperPrompt = errors.New("no developer prompt to export")

var csvHeader = []string{
	"id", "nome", "uf", "microrregiao", "mesorregiao", "regiao",
	"populacao_estimada", "area_km2",
	"resumo_geral", "dicas_negocios", "pontos_turisticos", "ideias_web_apps",
}

// File is an encoded download.
type File struct {
	Name     string
	MIMEType string
	Content  []byte
}

// Slugify lowercases the name and collapses every whitespace run into "_".
func Slugify(name string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// EncodeCSV writes the header row and one data row. Text columns are always
// quoted; numeric columns are written bare and left empty when absent.
func EncodeCSV(rec types.ProcessedRecord) File {
	values := []string{
		strconv.Itoa(rec.ID),
		quote(rec.Nome),
		quote(rec.UF),
		quote(rec.Microrregiao),
		quote(rec.Mesorregiao),
		quote(rec.Regiao),
		number(rec.Populacao),
		number(rec.Area),
		quote(deref(rec.Summary)),
		quote(deref(rec.BusinessTips)),
		quote(deref(rec.TourismHighlights)),
		quote(deref(rec.WebAppIdeas)),
	}

	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	b.WriteByte('\n')
	b.WriteString(strings.Join(values, ","))

	return File{
		Name:     fmt.Sprintf("pacote_%s_%s.csv", rec.UF, Slugify(rec.Nome)),
		MIMEType: CSVMIMEType,
		Content:  []byte(b.String()),
	}
}

// EncodeDeveloperPrompt exports the prompt text as-is.
func EncodeDeveloperPrompt(rec types.ProcessedRecord, prompt string) (File, error) {
	if strings.TrimSpace(prompt) == "" {
		return File{}, ErrNoDeveloperPrompt
	}
	return File{
		Name:     fmt.Sprintf("prompt_dev_%s.md", Slugify(rec.Nome)),
		MIMEType: MarkdownMIMEType,
		Content:  []byte(prompt),
	}, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func number(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
