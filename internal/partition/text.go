package partition

import (
	"encoding/csv"
	"os"
	"regexp"
	"strings"
)

var bulletRe = regexp.MustCompile(`^\s*(?:[-*•▪‣◦]|\d{1,3}[.)])\s+`)

// partitionText splits on blank lines. Short unpunctuated single lines are
// titles; bulleted lines are list items; the rest is narrative text.
func partitionText(path string, b *builder) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for _, block := range splitBlocks(text) {
		lines := strings.Split(block, "\n")
		if allBullets(lines) {
			for _, ln := range lines {
				b.add(ListItem, normalizeSpace(bulletRe.ReplaceAllString(ln, "")), nil)
			}
			continue
		}
		para := normalizeSpace(block)
		if len(lines) == 1 && looksLikeTitle(para) {
			b.add(Title, para, nil)
			continue
		}
		b.add(NarrativeText, para, nil)
	}
	return nil
}

func splitBlocks(text string) []string {
	var blocks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, ln := range strings.Split(text, "\n") {
		if strings.TrimSpace(ln) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(ln, " \t"))
	}
	flush()
	return blocks
}

func allBullets(lines []string) bool {
	for _, ln := range lines {
		if !bulletRe.MatchString(ln) {
			return false
		}
	}
	return len(lines) > 0
}

func partitionCSV(path string, b *builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}
	b.addTable(rows, nil)
	return nil
}
