package services

import (
  "bytes"
  "fmt"
  "image/png"
  "strings"

  "github.com/fogleman/gg"
  "github.com/golang/freetype/truetype"
  "golang.org/x/image/font"
  "golang.org/x/image/font/gofont/goregular"
)

const (
  placeholderWidth  = 1024
  placeholderHeight = 576
)

// RenderPlaceholderPNG draws the last-resort stand-in asset: a flat card with
// the section title, so a degraded block still renders something meaningful.
func RenderPlaceholderPNG(label string) ([]byte, error) {
  dc := gg.NewContext(placeholderWidth, placeholderHeight)

  dc.SetHexColor("#1f2937")
  dc.Clear()
  dc.SetHexColor("#374151")
  dc.DrawRectangle(24, 24, placeholderWidth-48, placeholderHeight-48)
  dc.Fill()

  parsed, err := truetype.Parse(goregular.TTF)
  if err != nil {
    return nil, fmt.Errorf("parse placeholder font: %w", err)
  }
  face := truetype.NewFace(parsed, &truetype.Options{Size: 42, Hinting: font.HintingFull})
  dc.SetFontFace(face)
  dc.SetHexColor("#f9fafb")

  text := strings.TrimSpace(label)
  if text == "" {
    text = "Content unavailable"
  }
  dc.DrawStringWrapped(text, placeholderWidth/2, placeholderHeight/2, 0.5, 0.5, placeholderWidth-160, 1.4, gg.AlignCenter)

  small := truetype.NewFace(parsed, &truetype.Options{Size: 20, Hinting: font.HintingFull})
  dc.SetFontFace(small)
  dc.SetHexColor("#9ca3af")
  dc.DrawStringAnchored("illustration pending", placeholderWidth/2, placeholderHeight-64, 0.5, 0.5)

  var buf bytes.Buffer
  if err := png.Encode(&buf, dc.Image()); err != nil {
    return nil, fmt.Errorf("encode placeholder png: %w", err)
  }
  return buf.Bytes(), nil
}
