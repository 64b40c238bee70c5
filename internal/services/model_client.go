package services

import (
  "bytes"
  "context"
  "encoding/base64"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "net"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/yungbote/skillforge-backend/internal/logger"
)

// ModelClient is the opaque model-invocation collaborator. Structured output
// is requested via JSON schema; the response is still repaired before use
// because providers occasionally wrap JSON in markdown fences.
type ModelClient interface {
  GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
  GenerateImage(ctx context.Context, prompt string) ([]byte, error)
  GenerateSpeech(ctx context.Context, script string) ([]byte, error)
  ModelVersion() string
  Healthy(ctx context.Context) bool
}

var (
  ErrModelRateLimited = errors.New("model invocation rate limited")
  ErrModelUnavailable = errors.New("model invocation unavailable")
)

// ModelParseError marks output that survived no repair strategy.
type ModelParseError struct {
  Raw string
  Err error
}

func (e *ModelParseError) Error() string {
  return fmt.Sprintf("model output unparseable: %v", e.Err)
}

func (e *ModelParseError) Unwrap() error { return e.Err }

type modelClient struct {
  log        *logger.Logger
  baseURL    string
  apiKey     string
  model      string
  imageModel string
  speechModel string
  httpClient *http.Client

  maxRetries int
  retryDelay time.Duration
}

func NewModelClient(log *logger.Logger) (ModelClient, error) {
  apiKey := os.Getenv("MODEL_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing MODEL_API_KEY")
  }

  baseURL := os.Getenv("MODEL_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.openai.com"
  }
  model := os.Getenv("MODEL_NAME")
  if model == "" {
    model = "gpt-5.2"
  }
  imageModel := os.Getenv("MODEL_IMAGE_NAME")
  if imageModel == "" {
    imageModel = "gpt-image-1"
  }
  speechModel := os.Getenv("MODEL_SPEECH_NAME")
  if speechModel == "" {
    speechModel = "gpt-4o-mini-tts"
  }

  timeoutSec := 180
  if v := os.Getenv("MODEL_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  return &modelClient{
    log:         log.With("service", "ModelClient"),
    baseURL:     baseURL,
    apiKey:      apiKey,
    model:       model,
    imageModel:  imageModel,
    speechModel: speechModel,
    httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
    maxRetries:  3,
    retryDelay:  2 * time.Second,
  }, nil
}

func (c *modelClient) ModelVersion() string { return c.model }

type modelHTTPError struct {
  StatusCode int
  Body       string
}

func (e *modelHTTPError) Error() string {
  return fmt.Sprintf("model http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
  if code == 408 || code == 429 {
    return true
  }
  return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
  if err == nil {
    return false
  }
  if errors.Is(err, context.Canceled) {
    return false
  }
  var netErr net.Error
  if errors.As(err, &netErr) && netErr.Timeout() {
    return true
  }
  var httpErr *modelHTTPError
  if errors.As(err, &httpErr) {
    return isRetryableHTTP(httpErr.StatusCode)
  }
  return errors.Is(err, context.DeadlineExceeded)
}

// classify maps a transport error onto the collaborator contract.
func classify(err error) error {
  var httpErr *modelHTTPError
  if errors.As(err, &httpErr) {
    if httpErr.StatusCode == 429 {
      return fmt.Errorf("%w: %s", ErrModelRateLimited, httpErr.Body)
    }
    if httpErr.StatusCode >= 500 {
      return fmt.Errorf("%w: %s", ErrModelUnavailable, httpErr.Body)
    }
  }
  return err
}

func (c *modelClient) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
  var buf bytes.Buffer
  if body != nil {
    if err := json.NewEncoder(&buf).Encode(body); err != nil {
      return nil, err
    }
  }

  req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
  if err != nil {
    return nil, err
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return nil, err
  }
  raw, readErr := io.ReadAll(resp.Body)
  _ = resp.Body.Close()
  if readErr != nil {
    return nil, readErr
  }
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return raw, &modelHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
  }
  return raw, nil
}

// do retries transient failures with a fixed delay, then escalates.
func (c *modelClient) do(ctx context.Context, method, path string, body any, out any) error {
  var lastErr error
  for attempt := 1; attempt <= c.maxRetries; attempt++ {
    if ctx.Err() != nil {
      return ctx.Err()
    }

    raw, err := c.doOnce(ctx, method, path, body)
    if err == nil {
      if out == nil {
        return nil
      }
      if uErr := json.Unmarshal(raw, out); uErr != nil {
        return fmt.Errorf("model response decode: %w", uErr)
      }
      return nil
    }
    lastErr = err

    if !isRetryableErr(err) {
      return classify(err)
    }
    if attempt == c.maxRetries {
      break
    }

    c.log.Warn("Model request retrying",
      "path", path,
      "attempt", attempt,
      "max_retries", c.maxRetries,
      "error", err.Error(),
    )
    select {
    case <-ctx.Done():
      return ctx.Err()
    case <-time.After(c.retryDelay):
    }
  }
  return classify(lastErr)
}

// ---- Structured JSON generation ----

type responsesRequest struct {
  Model string `json:"model"`
  Input []struct {
    Role    string `json:"role"`
    Content string `json:"content"`
  } `json:"input"`
  Text struct {
    Format map[string]any `json:"format"`
  } `json:"text"`
}

type responsesResponse struct {
  Output []struct {
    Type    string `json:"type"`
    Content []struct {
      Type string `json:"type"`
      Text string `json:"text,omitempty"`
    } `json:"content,omitempty"`
  } `json:"output"`
}

func (c *modelClient) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
  if schemaName == "" || schema == nil {
    return nil, errors.New("schema name and schema required")
  }

  req := responsesRequest{Model: c.model}
  req.Input = []struct {
    Role    string `json:"role"`
    Content string `json:"content"`
  }{
    {Role: "system", Content: system},
    {Role: "user", Content: user},
  }
  req.Text.Format = map[string]any{
    "type":   "json_schema",
    "name":   schemaName,
    "strict": true,
    "schema": schema,
  }

  var resp responsesResponse
  if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
    return nil, err
  }

  var text string
  for _, out := range resp.Output {
    for _, content := range out.Content {
      if content.Type == "output_text" && content.Text != "" {
        text = content.Text
      }
    }
  }
  if strings.TrimSpace(text) == "" {
    return nil, &ModelParseError{Raw: text, Err: errors.New("empty output")}
  }
  return RepairJSON(text)
}

// ---- Image / speech generation ----

type imageRequest struct {
  Model  string `json:"model"`
  Prompt string `json:"prompt"`
  Size   string `json:"size,omitempty"`
}

type imageResponse struct {
  Data []struct {
    B64JSON string `json:"b64_json"`
  } `json:"data"`
}

func (c *modelClient) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
  req := imageRequest{Model: c.imageModel, Prompt: prompt, Size: "1024x1024"}
  var resp imageResponse
  if err := c.do(ctx, "POST", "/v1/images/generations", req, &resp); err != nil {
    return nil, err
  }
  if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
    return nil, errors.New("image generation returned no data")
  }
  raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
  if err != nil {
    return nil, fmt.Errorf("decode image payload: %w", err)
  }
  return raw, nil
}

type speechRequest struct {
  Model string `json:"model"`
  Input string `json:"input"`
  Voice string `json:"voice"`
}

func (c *modelClient) GenerateSpeech(ctx context.Context, script string) ([]byte, error) {
  req := speechRequest{Model: c.speechModel, Input: script, Voice: "alloy"}

  var buf bytes.Buffer
  if err := json.NewEncoder(&buf).Encode(req); err != nil {
    return nil, err
  }
  httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/audio/speech", &buf)
  if err != nil {
    return nil, err
  }
  httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
  httpReq.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(httpReq)
  if err != nil {
    return nil, classify(err)
  }
  defer resp.Body.Close()
  raw, err := io.ReadAll(resp.Body)
  if err != nil {
    return nil, err
  }
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return nil, classify(&modelHTTPError{StatusCode: resp.StatusCode, Body: string(raw)})
  }
  return raw, nil
}

func (c *modelClient) Healthy(ctx context.Context) bool {
  ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
  defer cancel()
  _, err := c.doOnce(ctx, "GET", "/v1/models", nil)
  return err == nil
}
