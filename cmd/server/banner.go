package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const bannerWidth = 44

// printBanner writes the startup box listing the port and endpoints.
func printBanner(w io.Writer, port string) {
	rows := []string{
		"Tracking Server Running",
		"",
		"Port: " + port,
		"Endpoints:",
		"- POST /api/track    (Track visitor)",
		"- GET  /api/visitors (Get all visitors)",
		"- GET  /api/stats    (Get statistics)",
		"- GET  /api/health   (Health check)",
	}

	var b strings.Builder
	rule := strings.Repeat("═", bannerWidth)
	b.WriteString("╔" + rule + "╗\n")
	for i, row := range rows {
		if i == 1 {
			b.WriteString("╠" + rule + "╣\n")
			continue
		}
		b.WriteString(bannerRow(row))
	}
	b.WriteString("╚" + rule + "╝\n")
	fmt.Fprint(w, b.String())
}

func bannerRow(text string) string {
	text = "   " + text
	if pad := bannerWidth - utf8.RuneCountInString(text); pad > 0 {
		text += strings.Repeat(" ", pad)
	}
	return "║" + text + "║\n"
}
