package services

import (
	"cmp"
	"context"
	"errors"
	"math"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/netx"
	"github.com/dmitrijs2005/soundfilter/internal/server/config"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
	"github.com/dmitrijs2005/soundfilter/internal/server/processor"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/projects"
	"github.com/dmitrijs2005/soundfilter/internal/server/storage"
)

const (
	DefaultToneFrequency = 440
	MinToneFrequency     = 20
	MaxToneFrequency     = 20000

	// maxAudioDownloadBytes bounds a project's current audio. Converted
	// files can be much larger than the original upload.
	maxAudioDownloadBytes = 512 << 20

	msgAudioURLMissing = "Audio URL is missing for this project"
)

// AudioProcessor is the external audio API.
type AudioProcessor interface {
	Process(ctx context.Context, endpoint string, audio processor.Audio, fields []processor.Field) ([]byte, error)
	Transcribe(ctx context.Context, audio processor.Audio) (*processor.Transcription, error)
	Health(ctx context.Context) (*processor.Health, error)
}

type MuteParams struct {
	StartTime    float64
	EndTime      float64
	OutputFormat string
}

type ToneParams struct {
	StartTime float64
	EndTime   float64
	// Frequency in Hz; nil selects DefaultToneFrequency.
	Frequency    *int
	OutputFormat string
}

type TTSParams struct {
	StartTime float64
	// EndTime is optional; the processor then replaces up to the speech length.
	EndTime      *float64
	Text         string
	UseEdgeTTS   bool
	Gender       string
	OutputFormat string
}

type ConvertParams struct {
	TargetFormat string
}

// ModificationResponse describes the project's audio after a modification.
type ModificationResponse struct {
	ProjectID   int64  `json:"projectId"`
	AudioURL    string `json:"audioUrl"`
	AudioFormat string `json:"audioFormat"`
	FileSize    int64  `json:"fileSize"`
}

// TranscriptionResponse is the processor's transcription of a project.
type TranscriptionResponse struct {
	ProjectID int64 `json:"projectId"`
	processor.Transcription
}

// operation is one processor-backed modification. All of them share the
// workflow in modify.
type operation struct {
	name     string
	endpoint string
	// validate runs before any network or storage call.
	validate     func(p *models.Project) error
	fields       func(p *models.Project) []processor.Field
	outputFormat func(p *models.Project) string
}

// AudioService downloads a project's audio, has the external processor
// transform it and commits the result as the project's new audio.
type AudioService struct {
	projects         *ProjectService
	processor        AudioProcessor
	httpClient       *http.Client
	downloadTimeout  time.Duration
	maxDownloadBytes int64
	logger           logging.Logger
}

func NewAudioService(projects *ProjectService, proc AudioProcessor, cfg *config.Config, logger logging.Logger) *AudioService {
	return &AudioService{
		projects:         projects,
		processor:        proc,
		httpClient:       &http.Client{},
		downloadTimeout:  cfg.DownloadTimeout,
		maxDownloadBytes: maxAudioDownloadBytes,
		logger:           logger.With("module", "audio"),
	}
}

func (s *AudioService) Mute(ctx context.Context, callerID, projectID int64, params MuteParams) (*ModificationResponse, error) {
	return s.modify(ctx, callerID, projectID, muteOperation(params))
}

func (s *AudioService) ReplaceWithTone(ctx context.Context, callerID, projectID int64, params ToneParams) (*ModificationResponse, error) {
	return s.modify(ctx, callerID, projectID, toneOperation(params))
}

func (s *AudioService) ReplaceWithTTS(ctx context.Context, callerID, projectID int64, params TTSParams) (*ModificationResponse, error) {
	return s.modify(ctx, callerID, projectID, ttsOperation(params))
}

func (s *AudioService) ConvertFormat(ctx context.Context, callerID, projectID int64, params ConvertParams) (*ModificationResponse, error) {
	return s.modify(ctx, callerID, projectID, convertOperation(params))
}

// Transcribe runs speech recognition on the project's audio and stores the
// transcript on the project. Words come back ordered by start time.
func (s *AudioService) Transcribe(ctx context.Context, callerID, projectID int64) (*TranscriptionResponse, error) {
	p, err := s.resolve(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}

	audio, err := s.download(ctx, p)
	if err != nil {
		return nil, err
	}

	t, err := s.processor.Transcribe(ctx, audio)
	if err != nil {
		return nil, common.Internal("Error processing audio: %v", err)
	}
	if t.Words == nil {
		t.Words = []processor.Word{}
	}
	slices.SortStableFunc(t.Words, func(a, b processor.Word) int {
		return cmp.Compare(a.StartTime, b.StartTime)
	})

	if err := s.projects.repomanager.Projects(s.projects.db).SetTranscription(ctx, p.ID, t.Transcript); err != nil {
		return nil, common.Internal("Error saving transcription: %v", err)
	}

	s.logger.Info(ctx, "audio transcribed", "project_id", p.ID, "words", len(t.Words), "language", t.DetectedLanguage)
	return &TranscriptionResponse{ProjectID: p.ID, Transcription: *t}, nil
}

// CheckAccess reports whether callerID may work on projectID, with the same
// errors the operations return.
func (s *AudioService) CheckAccess(ctx context.Context, callerID, projectID int64) error {
	_, err := s.projects.authorize(ctx, callerID, projectID)
	return err
}

// ProcessorHealth reports the external processor's health.
func (s *AudioService) ProcessorHealth(ctx context.Context) (*processor.Health, error) {
	return s.processor.Health(ctx)
}

// modify is the shared workflow: check access and parameters, download,
// process, upload, swap the project's url and drop the old object.
func (s *AudioService) modify(ctx context.Context, callerID, projectID int64, op operation) (*ModificationResponse, error) {
	p, err := s.resolve(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}
	if err := op.validate(p); err != nil {
		return nil, err
	}

	log := s.logger.With("operation", op.name, "project_id", p.ID)

	audio, err := s.download(ctx, p)
	if err != nil {
		return nil, err
	}

	out, err := s.processor.Process(ctx, op.endpoint, audio, op.fields(p))
	if err != nil {
		return nil, common.Internal("Error processing audio: %v", err)
	}
	if len(out) == 0 {
		return nil, common.Internal("Error processing audio: %v", processor.ErrEmptyResponse)
	}

	format := op.outputFormat(p)
	key := storage.NewObjectKey(p.UserID, storage.CategoryAudio, format)
	newURL, err := s.projects.store.Put(ctx, key, out, common.AudioContentType(format))
	if err != nil {
		return nil, common.Internal("Error storing audio: %v", err)
	}

	updated, err := s.projects.repomanager.Projects(s.projects.db).ReplaceAudio(ctx, p.ID, projects.AudioReplacement{
		OldURL:   p.AudioURL,
		NewURL:   newURL,
		Format:   format,
		FileSize: int64(len(out)),
	})
	if err != nil {
		deleteObjectQuietly(ctx, s.projects.store, log, newURL)
		if errors.Is(err, common.ErrVersionConflict) {
			return nil, common.NewRequestError(common.ErrVersionConflict,
				"Project audio was changed by another request, please retry")
		}
		return nil, common.Internal("Error storing audio: %v", err)
	}

	deleteObjectQuietly(ctx, s.projects.store, log, p.AudioURL)

	log.Info(ctx, "audio modified", "format", updated.AudioFormat, "size", updated.FileSize)
	return &ModificationResponse{
		ProjectID:   updated.ID,
		AudioURL:    updated.AudioURL,
		AudioFormat: updated.AudioFormat,
		FileSize:    updated.FileSize,
	}, nil
}

func (s *AudioService) resolve(ctx context.Context, callerID, projectID int64) (*models.Project, error) {
	p, err := s.projects.authorize(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}
	if p.AudioURL == "" {
		return nil, common.BadRequest(msgAudioURLMissing)
	}
	return p, nil
}

func (s *AudioService) download(ctx context.Context, p *models.Project) (processor.Audio, error) {
	if s.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.downloadTimeout)
		defer cancel()
	}

	data, _, err := netx.Download(ctx, s.httpClient, p.AudioURL, s.maxDownloadBytes)
	if err != nil {
		return processor.Audio{}, common.Internal("Error downloading audio file: %v", err)
	}
	if len(data) == 0 {
		return processor.Audio{}, common.Internal("Error downloading audio file: empty file")
	}

	return processor.Audio{
		FileName:    audioFileName(p),
		ContentType: common.AudioContentType(p.AudioFormat),
		Data:        data,
	}, nil
}

// --- operations ---

func muteOperation(params MuteParams) operation {
	return operation{
		name:     "mute",
		endpoint: processor.EndpointModify,
		validate: func(*models.Project) error {
			if err := validateTimes(params.StartTime, &params.EndTime); err != nil {
				return err
			}
			return validateFormat(params.OutputFormat)
		},
		fields: func(p *models.Project) []processor.Field {
			return []processor.Field{
				{Name: "modification_type", Value: "mute"},
				{Name: "start_time", Value: formatSeconds(params.StartTime)},
				{Name: "end_time", Value: formatSeconds(params.EndTime)},
				{Name: "output_format", Value: outputFormat(params.OutputFormat, p)},
			}
		},
		outputFormat: func(p *models.Project) string { return outputFormat(params.OutputFormat, p) },
	}
}

func toneOperation(params ToneParams) operation {
	freq := DefaultToneFrequency
	if params.Frequency != nil {
		freq = *params.Frequency
	}
	return operation{
		name:     "tone",
		endpoint: processor.EndpointModify,
		validate: func(*models.Project) error {
			if err := validateTimes(params.StartTime, &params.EndTime); err != nil {
				return err
			}
			if freq < MinToneFrequency || freq > MaxToneFrequency {
				return common.BadRequest("Tone frequency must be between %d and %d Hz", MinToneFrequency, MaxToneFrequency)
			}
			return validateFormat(params.OutputFormat)
		},
		fields: func(p *models.Project) []processor.Field {
			return []processor.Field{
				{Name: "modification_type", Value: "tone"},
				{Name: "start_time", Value: formatSeconds(params.StartTime)},
				{Name: "end_time", Value: formatSeconds(params.EndTime)},
				{Name: "tone_frequency", Value: strconv.Itoa(freq)},
				{Name: "output_format", Value: outputFormat(params.OutputFormat, p)},
			}
		},
		outputFormat: func(p *models.Project) string { return outputFormat(params.OutputFormat, p) },
	}
}

func ttsOperation(params TTSParams) operation {
	gender := strings.ToLower(strings.TrimSpace(params.Gender))
	text := strings.TrimSpace(params.Text)
	return operation{
		name:     "tts",
		endpoint: processor.EndpointReplaceWithTTS,
		validate: func(*models.Project) error {
			if err := validateTimes(params.StartTime, params.EndTime); err != nil {
				return err
			}
			if text == "" {
				return common.BadRequest("Replacement text is required")
			}
			if gender != "" && gender != "male" && gender != "female" {
				return common.BadRequest("Gender must be male or female")
			}
			return validateFormat(params.OutputFormat)
		},
		fields: func(p *models.Project) []processor.Field {
			fields := []processor.Field{
				{Name: "start_time", Value: formatSeconds(params.StartTime)},
				{Name: "replacement_text", Value: text},
				{Name: "output_format", Value: outputFormat(params.OutputFormat, p)},
				{Name: "use_edge_tts", Value: strconv.FormatBool(params.UseEdgeTTS)},
			}
			if params.EndTime != nil {
				fields = append(fields, processor.Field{Name: "end_time", Value: formatSeconds(*params.EndTime)})
			}
			if gender != "" {
				fields = append(fields, processor.Field{Name: "gender", Value: gender})
			}
			return fields
		},
		outputFormat: func(p *models.Project) string { return outputFormat(params.OutputFormat, p) },
	}
}

func convertOperation(params ConvertParams) operation {
	target := normalizeFormat(params.TargetFormat)
	return operation{
		name:     "convert",
		endpoint: processor.EndpointConvertFormat,
		validate: func(p *models.Project) error {
			if target == "" {
				return common.BadRequest("Target format is required")
			}
			if err := validateFormat(target); err != nil {
				return err
			}
			if target == normalizeFormat(p.AudioFormat) {
				return common.BadRequest("Audio is already in %s format", target)
			}
			return nil
		},
		fields: func(*models.Project) []processor.Field {
			return []processor.Field{{Name: "target_format", Value: target}}
		},
		outputFormat: func(*models.Project) string { return target },
	}
}

// --- helpers ---

func validateTimes(start float64, end *float64) error {
	if !isFinite(start) || (end != nil && !isFinite(*end)) {
		return common.BadRequest("Start and end time must be finite numbers")
	}
	if start < 0 {
		return common.BadRequest("Start time must not be negative")
	}
	if end != nil && start >= *end {
		return common.BadRequest("Start time must be less than end time")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validateFormat accepts an empty format, meaning "keep the current one".
func validateFormat(format string) error {
	f := normalizeFormat(format)
	if f == "" || common.IsSupportedAudioFormat(f) {
		return nil
	}
	return common.BadRequest("Unsupported format: %s", strings.TrimSpace(format))
}

func outputFormat(requested string, p *models.Project) string {
	if f := normalizeFormat(requested); f != "" {
		return f
	}
	return normalizeFormat(p.AudioFormat)
}

func normalizeFormat(f string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// audioFileName is the last path segment of the project's url.
func audioFileName(p *models.Project) string {
	u := p.AudioURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	name := path.Base(u)
	if name == "" || name == "." || name == "/" {
		return "audio." + normalizeFormat(p.AudioFormat)
	}
	return name
}
