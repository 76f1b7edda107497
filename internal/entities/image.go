package entities

const ContentTypeWebP = "image/webp"

// ImageType is the normalized suffix of a source object key.
type ImageType string

const (
	TypeJPG  ImageType = "jpg"
	TypeJPEG ImageType = "jpeg"
	TypeGIF  ImageType = "gif"
	TypePNG  ImageType = "png"
	TypeWEBP ImageType = "webp"
	TypeSVG  ImageType = "svg"
)

// TranscodeRequest describes one source object and where its rendition goes.
type TranscodeRequest struct {
	SourceBucket string    `json:"source_bucket"`
	SourceKey    string    `json:"source_key"`
	DestBucket   string    `json:"dest_bucket"`
	DestKey      string    `json:"dest_key"`
	Type         ImageType `json:"type"`
}

// RawAsset holds the fetched bytes of a source object.
type RawAsset struct {
	Data   []byte
	Length int64
}

type EncodedAsset struct {
	Data        []byte
	ContentType string
}

// Outcome is the terminal state of a single request.
type Outcome string

const (
	OutcomeUploaded        Outcome = "uploaded"
	OutcomeSkippedType     Outcome = "skipped_type"
	OutcomeSkippedEmpty    Outcome = "skipped_empty"
	OutcomeFetchFailed     Outcome = "fetch_failed"
	OutcomeTranscodeFailed Outcome = "transcode_failed"
	OutcomeUploadFailed    Outcome = "upload_failed"
	OutcomeSkippedKey      Outcome = "skipped_key"
)
