package services

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	id3v2 "github.com/bogem/id3v2/v2"
)

// TagAlbum is the album name stamped on every produced track.
const TagAlbum = "Audio Book"

// WriteTags sets ID3 title/artist/album and the current year on an MP3
// track, adding a tag if none exists yet. Non-MP3 tracks (Gemini's WAV
// output) are skipped with a log line — WAV carries no ID3 tag.
func WriteTags(path, title, artist, album string) error {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		log.Printf("[Tags] Skipping %s: only MP3 tracks are tagged", filepath.Base(path))
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s for tagging: %w", path, err)
	}
	defer tag.Close()

	tag.SetTitle(title)
	tag.SetArtist(artist)
	tag.SetAlbum(album)
	tag.AddTextFrame(tag.CommonID("Recording time"), tag.DefaultEncoding(), strconv.Itoa(time.Now().Year()))

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags for %s: %w", path, err)
	}

	log.Printf("[Tags] Tagged %s (title=%q, artist=%q)", filepath.Base(path), title, artist)
	return nil
}
