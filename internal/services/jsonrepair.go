package services

import (
  "encoding/json"
  "fmt"
  "regexp"
  "strings"
)

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// RepairJSON parses model output that should be a JSON object. Repair order:
// parse as-is, strip markdown fences and retry, regex-extract the outermost
// object and retry, then give up with a ModelParseError.
func RepairJSON(raw string) (map[string]any, error) {
  trimmed := strings.TrimSpace(raw)

  var out map[string]any
  if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
    return out, nil
  }

  stripped := stripMarkdownFences(trimmed)
  if err := json.Unmarshal([]byte(stripped), &out); err == nil {
    return out, nil
  }

  if match := jsonObjectRe.FindString(stripped); match != "" {
    if err := json.Unmarshal([]byte(match), &out); err == nil {
      return out, nil
    }
  }

  return nil, &ModelParseError{Raw: raw, Err: fmt.Errorf("no repair strategy produced valid JSON")}
}

func stripMarkdownFences(s string) string {
  s = strings.TrimSpace(s)
  if !strings.HasPrefix(s, "```") {
    return s
  }
  s = strings.TrimPrefix(s, "```json")
  s = strings.TrimPrefix(s, "```JSON")
  s = strings.TrimPrefix(s, "```")
  if idx := strings.LastIndex(s, "```"); idx >= 0 {
    s = s[:idx]
  }
  return strings.TrimSpace(s)
}
