package synthesis

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// VertexImagenConfig describes how to connect to Imagen.
type VertexImagenConfig struct {
	ProjectID          string
	Location           string
	Model              string
	APIKey             string
	ServiceAccount     string
	ServiceAccountJSON string
}

// VertexImagen edits images via the Vertex AI SDK. Imagen edits accept a
// single base image, so only the first request image (the room photo) is
// forwarded; reference imagery is conveyed through the prompt alone.
type VertexImagen struct {
	projectID          string
	location           string
	model              string
	apiKey             string
	serviceAccount     string
	serviceAccountJSON string
}

// NewVertexImagen wires a VertexImagen client.
func NewVertexImagen(cfg VertexImagenConfig) *VertexImagen {
	return &VertexImagen{
		projectID:          strings.TrimSpace(cfg.ProjectID),
		location:           strings.TrimSpace(cfg.Location),
		model:              strings.TrimSpace(cfg.Model),
		apiKey:             strings.TrimSpace(cfg.APIKey),
		serviceAccount:     strings.TrimSpace(cfg.ServiceAccount),
		serviceAccountJSON: strings.TrimSpace(cfg.ServiceAccountJSON),
	}
}

// Edit runs an Imagen edit request and returns the decoded image bytes.
func (v *VertexImagen) Edit(ctx context.Context, req Request) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("imagen: client not configured")
	}
	if v.projectID == "" || v.location == "" || v.model == "" {
		return nil, fmt.Errorf("imagen: missing project/location/model")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("imagen: prompt is required")
	}
	if len(req.Images) == 0 {
		return nil, fmt.Errorf("imagen: base image is required")
	}

	encoded := base64.StdEncoding.EncodeToString(req.Images[0].Data)
	instance, err := structpb.NewValue(map[string]any{
		"prompt": req.Prompt,
		"image": map[string]any{
			"bytesBase64Encoded": encoded,
		},
	})
	if err != nil {
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = 1
	}
	params, err := structpb.NewValue(map[string]any{
		"sampleCount": count,
		"editMode":    "inpainting-free-form",
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", v.projectID, v.location, v.model)
	options := []option.ClientOption{option.WithEndpoint(fmt.Sprintf("%s-aiplatform.googleapis.com:443", v.location))}
	if v.serviceAccountJSON != "" {
		options = append(options, option.WithCredentialsJSON([]byte(v.serviceAccountJSON)))
	} else if v.serviceAccount != "" {
		options = append(options, option.WithCredentialsFile(v.serviceAccount))
	} else if v.apiKey != "" {
		options = append(options, option.WithAPIKey(v.apiKey))
	}

	client, err := aiplatform.NewPredictionClient(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("imagen: prediction client: %w", err)
	}
	defer client.Close()

	resp, err := client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   endpoint,
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return nil, fmt.Errorf("imagen: predict: %w", err)
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("imagen: empty prediction response")
	}

	field := resp.Predictions[0].GetStructValue().GetFields()["bytesBase64Encoded"]
	if field == nil {
		return nil, fmt.Errorf("imagen: prediction missing bytes")
	}

	data, err := base64.StdEncoding.DecodeString(field.GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("imagen: decode result: %w", err)
	}
	return data, nil
}
