package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tabtriage/models"
)

// SiteKindYouTube marks content produced by the YouTube extractor.
const SiteKindYouTube = "youtube"

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/shorts/[\w-]+`),
	regexp.MustCompile(`^(?:https?://)?youtu\.be/[\w-]+`),
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/embed/[\w-]+`),
	regexp.MustCompile(`^(?:https?://)?(?:www\.)?youtube\.com/v/[\w-]+`),
}

var videoPathRe = regexp.MustCompile(`^/(shorts|embed|v)/([^/?]+)`)

// videoInfo is the subset of the metadata tool's JSON output we consume.
type videoInfo struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Duration     *int64   `json:"duration"`
	Uploader     string   `json:"uploader"`
	UploaderID   string   `json:"uploader_id"`
	Channel      string   `json:"channel"`
	ChannelID    string   `json:"channel_id"`
	UploadDate   string   `json:"upload_date"`
	ViewCount    *int64   `json:"view_count"`
	LikeCount    *int64   `json:"like_count"`
	CommentCount *int64   `json:"comment_count"`
	Thumbnail    string   `json:"thumbnail"`
	Categories   []string `json:"categories"`
	Tags         []string `json:"tags"`
	IsLive       bool     `json:"is_live"`
	WasLive      bool     `json:"was_live"`
}

// YouTubeExtractor extracts video metadata by shelling out to an external
// metadata tool (yt-dlp) with a bounded timeout. Any tool failure falls
// back to heuristic parsing of the page HTML, so extraction never
// hard-fails just because the tool is unavailable; the fallback loses
// duration and uploader fidelity and is marked in the metadata.
type YouTubeExtractor struct {
	tool    string
	timeout time.Duration
}

// NewYouTubeExtractor builds the extractor. tool is the metadata tool
// binary name or path; timeout bounds each subprocess invocation.
func NewYouTubeExtractor(tool string, timeout time.Duration) *YouTubeExtractor {
	if tool == "" {
		tool = "yt-dlp"
	}
	return &YouTubeExtractor{tool: tool, timeout: timeout}
}

func (y *YouTubeExtractor) Name() string { return "youtube" }

// Matches checks the known video URL shapes, then the domain.
func (y *YouTubeExtractor) Matches(rawURL string) bool {
	for _, p := range youtubePatterns {
		if p.MatchString(rawURL) {
			return true
		}
	}
	switch extractDomain(rawURL) {
	case "youtube.com", "www.youtube.com", "youtu.be":
		return true
	}
	return false
}

func (y *YouTubeExtractor) Extract(ctx context.Context, rawURL string, rawHTML []byte) (*models.ExtractedContent, error) {
	info, err := y.fetchVideoInfo(ctx, rawURL)
	if err != nil {
		return y.fallbackParse(rawURL, rawHTML, err)
	}
	return y.contentFromInfo(rawURL, info), nil
}

// fetchVideoInfo runs the metadata tool as a subprocess. The context
// bounds the call; a timeout kills the process and surfaces as an error.
func (y *YouTubeExtractor) fetchVideoInfo(ctx context.Context, rawURL string) (*videoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.tool,
		"--dump-json", "--no-download", "--no-playlist", "--no-warnings", rawURL)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out after %s", y.tool, y.timeout)
		}
		return nil, fmt.Errorf("%s failed: %v: %s", y.tool, err, strings.TrimSpace(stderr.String()))
	}

	var info videoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("%s produced malformed output: %w", y.tool, err)
	}
	return &info, nil
}

func (y *YouTubeExtractor) contentFromInfo(rawURL string, info *videoInfo) *models.ExtractedContent {
	var textParts []string
	if info.Title != "" {
		textParts = append(textParts, info.Title)
	}
	if info.Description != "" {
		textParts = append(textParts, info.Description)
	}
	text := strings.Join(textParts, "\n\n")

	metadata := map[string]any{
		"url":      rawURL,
		"is_live":  info.IsLive,
		"was_live": info.WasLive,
	}
	setIfPresent(metadata, "video_id", info.ID)
	setIfPresent(metadata, "uploader", info.Uploader)
	setIfPresent(metadata, "uploader_id", info.UploaderID)
	setIfPresent(metadata, "channel", info.Channel)
	setIfPresent(metadata, "channel_id", info.ChannelID)
	setIfPresent(metadata, "upload_date", info.UploadDate)
	setIfPresent(metadata, "thumbnail", info.Thumbnail)
	if info.ViewCount != nil {
		metadata["view_count"] = *info.ViewCount
	}
	if info.LikeCount != nil {
		metadata["like_count"] = *info.LikeCount
	}
	if info.CommentCount != nil {
		metadata["comment_count"] = *info.CommentCount
	}
	if len(info.Categories) > 0 {
		metadata["categories"] = info.Categories
	}
	if len(info.Tags) > 0 {
		metadata["tags"] = info.Tags
	}

	return &models.ExtractedContent{
		SiteKind:     SiteKindYouTube,
		Title:        info.Title,
		TextFull:     text,
		WordCount:    models.CountWords(text),
		VideoSeconds: info.Duration,
		Metadata:     metadata,
	}
}

// fallbackParse builds lower-fidelity content from the page HTML when the
// metadata tool is unavailable. Duration cannot be recovered this way.
func (y *YouTubeExtractor) fallbackParse(rawURL string, rawHTML []byte, toolErr error) (*models.ExtractedContent, error) {
	metadata := map[string]any{
		"url":           rawURL,
		"fallback_used": true,
		"parse_error":   toolErr.Error(),
	}
	if videoID := extractVideoID(rawURL); videoID != "" {
		metadata["video_id"] = videoID
	}

	var title, description string
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML)); err == nil {
		title = strings.TrimSpace(doc.Find("title").First().Text())
		title = strings.TrimSuffix(title, " - YouTube")
		description = metaContent(doc, "description")
	}

	var textParts []string
	if title != "" {
		textParts = append(textParts, title)
	}
	if description != "" {
		textParts = append(textParts, description)
	}
	text := strings.Join(textParts, "\n\n")

	return &models.ExtractedContent{
		SiteKind:  SiteKindYouTube,
		Title:     title,
		TextFull:  text,
		WordCount: models.CountWords(text),
		Metadata:  metadata,
	}, nil
}

// extractVideoID pulls the video id out of the known URL shapes.
func extractVideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	if strings.Contains(host, "youtube.com") {
		if parsed.Path == "/watch" {
			return parsed.Query().Get("v")
		}
		if m := videoPathRe.FindStringSubmatch(parsed.Path); m != nil {
			return m[2]
		}
	}
	if strings.Contains(host, "youtu.be") {
		return strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 2)[0]
	}
	return ""
}

func setIfPresent(metadata map[string]any, key, value string) {
	if value != "" {
		metadata[key] = value
	}
}
