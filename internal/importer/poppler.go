package importer

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// PopplerDecoder opens PDFs by shelling out to the Poppler tools: pdfinfo
// for page dimensions and encryption status, pdftoppm for rasterization.
type PopplerDecoder struct {
	pdfinfoPath  string
	pdftoppmPath string
}

func NewPopplerDecoder(pdfinfoPath, pdftoppmPath string) *PopplerDecoder {
	return &PopplerDecoder{pdfinfoPath: pdfinfoPath, pdftoppmPath: pdftoppmPath}
}

var pageSizeRe = regexp.MustCompile(`(?m)^Page\s+(\d+)\s+size:\s+([\d.]+)\s+x\s+([\d.]+)\s+pts`)

type popplerDocument struct {
	dec     *PopplerDecoder
	tempDir string
	path    string
	pages   []PageInfo
}

// Open writes the source bytes to a temp file and probes it with pdfinfo.
func (d *PopplerDecoder) Open(ctx context.Context, src []byte) (SourceDocument, error) {
	tempDir, err := os.MkdirTemp("", "pagemark-import-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	path := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(path, src, 0o600); err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("write source file: %w", err)
	}

	pages, err := d.probe(ctx, path)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, err
	}

	return &popplerDocument{dec: d, tempDir: tempDir, path: path, pages: pages}, nil
}

// probe runs pdfinfo and parses per-page sizes. Encrypted sources and
// sources pdfinfo cannot parse map onto the load-error taxonomy.
func (d *PopplerDecoder) probe(ctx context.Context, path string) ([]PageInfo, error) {
	cmd := exec.CommandContext(ctx, d.pdfinfoPath, "-f", "1", "-l", "-1", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "Incorrect password") || strings.Contains(msg, "Encrypted") {
			return nil, ErrEncrypted
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	out := stdout.String()
	if encrypted(out) {
		return nil, ErrEncrypted
	}

	matches := pageSizeRe.FindAllStringSubmatch(out, -1)
	pages := make([]PageInfo, 0, len(matches))
	for _, m := range matches {
		w, errW := strconv.ParseFloat(m[2], 64)
		h, errH := strconv.ParseFloat(m[3], 64)
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			return nil, fmt.Errorf("%w: bad page size %q x %q", ErrCorrupt, m[2], m[3])
		}
		pages = append(pages, PageInfo{Width: w, Height: h})
	}
	return pages, nil
}

func encrypted(pdfinfoOutput string) bool {
	for _, line := range strings.Split(pdfinfoOutput, "\n") {
		if strings.HasPrefix(line, "Encrypted:") && strings.Contains(line, "yes") {
			return true
		}
	}
	return false
}

func (p *popplerDocument) Pages() []PageInfo {
	return p.pages
}

// RenderPage rasterizes one page with pdftoppm at scale×72 dpi.
func (p *popplerDocument) RenderPage(ctx context.Context, page int, scale float64) ([]byte, error) {
	if page < 1 || page > len(p.pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}

	dpi := int(math.Round(72 * scale))
	outPrefix := filepath.Join(p.tempDir, fmt.Sprintf("page_%04d", page))

	cmd := exec.CommandContext(ctx, p.dec.pdftoppmPath,
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		p.path,
		outPrefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %v: %s", err, stderr.String())
	}

	data, err := os.ReadFile(outPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return data, nil
}

func (p *popplerDocument) Close() error {
	return os.RemoveAll(p.tempDir)
}
