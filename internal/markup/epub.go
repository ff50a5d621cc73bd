package markup

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
)

// EPUB container structures — just enough of the OCF/OPF format to find
// the book title and walk the chapters in spine order.

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Title    string `xml:"metadata>title"`
	Manifest []struct {
		ID   string `xml:"id,attr"`
		Href string `xml:"href,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// extractEPUB reads an EPUB archive and returns the book title followed by
// each chapter's text, in spine order. A chapter that cannot be read or
// parsed is skipped with a warning rather than failing the whole book.
func extractEPUB(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open epub archive: %w", err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	opfPath, err := epubRootfile(files)
	if err != nil {
		return "", err
	}

	var pkg epubPackage
	if err := readXML(files, opfPath, &pkg); err != nil {
		return "", fmt.Errorf("failed to read epub package %s: %w", opfPath, err)
	}

	hrefByID := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefByID[item.ID] = item.Href
	}

	var sb strings.Builder
	if title := strings.TrimSpace(pkg.Title); title != "" {
		sb.WriteString(title)
		sb.WriteString("\n\n")
	}

	opfDir := path.Dir(opfPath)
	chapters := 0
	for _, ref := range pkg.Spine {
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			log.Printf("[EPUB] spine references unknown item %q, skipping", ref.IDRef)
			continue
		}

		chapterPath := path.Clean(path.Join(opfDir, href))
		content, err := readZipFile(files, chapterPath)
		if err != nil {
			log.Printf("[EPUB] failed to read chapter %s, skipping: %v", chapterPath, err)
			continue
		}

		text, err := htmlToText(content)
		if err != nil {
			log.Printf("[EPUB] failed to parse chapter %s, skipping: %v", chapterPath, err)
			continue
		}

		if trimmed := strings.TrimSpace(text); trimmed != "" {
			sb.WriteString(trimmed)
			sb.WriteString("\n\n")
			chapters++
		}
	}

	if chapters == 0 {
		return "", fmt.Errorf("epub contains no readable chapters")
	}

	return sb.String(), nil
}

// epubRootfile locates the OPF package document via META-INF/container.xml.
func epubRootfile(files map[string]*zip.File) (string, error) {
	var container epubContainer
	if err := readXML(files, "META-INF/container.xml", &container); err != nil {
		return "", fmt.Errorf("failed to read epub container: %w", err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("epub container declares no rootfile")
	}
	return container.Rootfiles[0].FullPath, nil
}

func readXML(files map[string]*zip.File, name string, v interface{}) error {
	data, err := readZipFile(files, name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("file %s not found in archive", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
