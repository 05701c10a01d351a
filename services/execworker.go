package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"reprise/logger"
	"reprise/types"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/dhowden/tag"
)

// execWorker shells out to an external transformation command and to
// ffprobe for metadata. The command receives the input path, the output
// path and the settings as a JSON argument, and signals failure through
// its exit code.
type execWorker struct {
	command     string
	ffprobePath string
}

// NewExecWorker creates a Worker backed by external processes
func NewExecWorker(command, ffprobePath string) Worker {
	return &execWorker{
		command:     command,
		ffprobePath: ffprobePath,
	}
}

func (w *execWorker) Transform(ctx context.Context, inputPath, outputPath string, settings types.ExtensionSettings) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("%w: encoding settings: %v", ErrWorkerFailure, err)
	}

	task := execute.ExecTask{
		Command:     w.command,
		Args:        []string{inputPath, outputPath, string(settingsJSON)},
		StreamStdio: false,
	}

	res, err := task.Execute(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkerFailure, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: exit code %d: %s", ErrWorkerFailure, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

// ffprobeOutput matches the JSON emitted by
// ffprobe -show_entries format=duration,bit_rate,format_name -of json
type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
}

func (w *execWorker) ExtractMetadata(ctx context.Context, path string) (*types.AudioMetadata, error) {
	meta := &types.AudioMetadata{}

	if err := w.probe(ctx, path, meta); err != nil {
		logger.Warn("ffprobe metadata extraction failed, falling back to tags",
			logger.String("path", path),
			logger.ErrorField(err))
	}

	// Tag frames are best-effort on top of the probe: they are the only
	// source for BPM and musical key.
	w.readTags(path, meta)

	if meta.Format == "" && meta.Duration == nil && meta.BPM == nil && meta.Key == "" {
		return nil, fmt.Errorf("no metadata could be extracted from %s", path)
	}
	return meta, nil
}

func (w *execWorker) probe(ctx context.Context, path string, meta *types.AudioMetadata) error {
	task := execute.ExecTask{
		Command: w.ffprobePath,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration,bit_rate,format_name",
			"-of", "json",
			path,
		},
		StreamStdio: false,
	}

	res, err := task.Execute(ctx)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("ffprobe exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	var probed ffprobeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &probed); err != nil {
		return fmt.Errorf("unmarshal ffprobe output: %w", err)
	}

	meta.Format = normalizeFormatName(probed.Format.FormatName)
	if d, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil && d > 0 {
		meta.Duration = &d
	}
	if b, err := strconv.Atoi(probed.Format.BitRate); err == nil && b > 0 {
		meta.Bitrate = b
	}
	return nil
}

// readTags fills gaps from embedded tags, including the TBPM/TKEY frames
// ffprobe's format section does not expose.
func (w *execWorker) readTags(path string, meta *types.AudioMetadata) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	tags, err := tag.ReadFrom(file)
	if err != nil {
		return
	}

	if meta.Format == "" {
		meta.Format = strings.ToLower(string(tags.FileType()))
	}

	raw := tags.Raw()
	if meta.BPM == nil {
		if bpm, ok := rawFloat(raw, "TBPM", "bpm"); ok {
			meta.BPM = &bpm
		}
	}
	if meta.Key == "" {
		if key, ok := rawString(raw, "TKEY", "initialkey"); ok {
			meta.Key = key
		}
	}
}

func rawString(raw map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := raw[key]; ok {
			s := strings.TrimSpace(fmt.Sprint(value))
			if s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func rawFloat(raw map[string]interface{}, keys ...string) (float64, bool) {
	s, ok := rawString(raw, keys...)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// normalizeFormatName maps ffprobe container names onto the short format
// labels clients expect.
func normalizeFormatName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case name == "":
		return ""
	case strings.Contains(name, "mp3"):
		return "mp3"
	case strings.Contains(name, "wav"):
		return "wav"
	case strings.Contains(name, "flac"):
		return "flac"
	case strings.Contains(name, "aiff"):
		return "aiff"
	default:
		return strings.SplitN(name, ",", 2)[0]
	}
}
