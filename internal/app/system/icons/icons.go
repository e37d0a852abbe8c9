// internal/app/system/icons/icons.go
//
// Package icons is the icon collaborator: it renders a deterministic group
// avatar and stores it, returning a serveable URL. It runs post-commit only
// and is best-effort; a failure here must never affect group creation.
package icons

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Generator produces and stores a group icon.
type Generator interface {
	GenerateAndStore(ctx context.Context, groupID primitive.ObjectID) (url string, err error)
}

// LocalGenerator renders an SVG identicon into a local directory served under
// a URL prefix (the local-storage arrangement; an S3 implementation would
// satisfy the same interface).
type LocalGenerator struct {
	dir       string
	urlPrefix string
}

// NewLocalGenerator builds a generator writing under dir, serving under
// urlPrefix.
func NewLocalGenerator(dir, urlPrefix string) *LocalGenerator {
	return &LocalGenerator{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

// palette for icon backgrounds; the group id picks the entry, so the icon is
// stable across regenerations.
var palette = []string{
	"#2563eb", "#16a34a", "#d97706", "#dc2626",
	"#7c3aed", "#0891b2", "#be185d", "#4d7c0f",
}

// GenerateAndStore writes the icon file and returns its URL.
func (g *LocalGenerator) GenerateAndStore(ctx context.Context, groupID primitive.ObjectID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("create icon dir: %w", err)
	}

	name := uuid.NewString() + ".svg"
	path := filepath.Join(g.dir, name)
	if err := os.WriteFile(path, []byte(render(groupID)), 0o644); err != nil {
		return "", fmt.Errorf("write icon: %w", err)
	}
	return g.urlPrefix + "/" + name, nil
}

// render draws a 5x5 symmetric identicon seeded by the group id bytes.
func render(groupID primitive.ObjectID) string {
	seed := groupID[:]
	bg := palette[int(seed[0])%len(palette)]

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 5 5" width="120" height="120">`)
	fmt.Fprintf(&b, `<rect width="5" height="5" fill="%s"/>`, bg)
	for row := 0; row < 5; row++ {
		for col := 0; col < 3; col++ { // left half + center; mirror the rest
			bit := seed[(row*3+col)%len(seed)] & 1
			if bit == 0 {
				continue
			}
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="1" height="1" fill="#ffffff" fill-opacity="0.9"/>`, col, row)
			if mirror := 4 - col; mirror != col {
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="1" height="1" fill="#ffffff" fill-opacity="0.9"/>`, mirror, row)
			}
		}
	}
	b.WriteString(`</svg>`)
	return b.String()
}
