package handler

import (
	"github.com/aws/aws-lambda-go/events"

	"github.com/NFT-com/image-resizer/internal/pipeline"
)

type EventParams struct {
	Records []RecordParams `validate:"required,min=1,dive"`
}

type RecordParams struct {
	Bucket string `validate:"required,max=63"`   // S3 bucket name limit
	Key    string `validate:"required,max=3072"` // url-encoded key, 1024 bytes decoded
}

type EventsResponse struct {
	Results []pipeline.Result `json:"results"`
}

func eventParamsFrom(e events.S3Event) EventParams {
	p := EventParams{Records: make([]RecordParams, 0, len(e.Records))}
	for _, rec := range e.Records {
		p.Records = append(p.Records, RecordParams{
			Bucket: rec.S3.Bucket.Name,
			Key:    rec.S3.Object.Key,
		})
	}
	return p
}
