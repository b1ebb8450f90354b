package core

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ticket-analyzer/constants"
	"github.com/joseph-ayodele/ticket-analyzer/internal/cache"
	"github.com/joseph-ayodele/ticket-analyzer/internal/common"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/doctext"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/fields"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/ocr"
	"github.com/joseph-ayodele/ticket-analyzer/internal/core/preprocess"
)

type stubRecognizer struct {
	frags []ocr.Fragment
	err   error
	calls int
}

func (s *stubRecognizer) Name() string { return "stub" }

func (s *stubRecognizer) Recognize(context.Context, image.Image) ([]ocr.Fragment, error) {
	s.calls++
	return s.frags, s.err
}

func word(text string, x, y float64) ocr.Fragment {
	return ocr.Fragment{
		Text:       text,
		Confidence: 0.9,
		Box:        ocr.NewBBox(ocr.Point{X: x, Y: y}, ocr.Point{X: x + float64(12*len(text)), Y: y + 18}),
	}
}

// receiptWords is what a recognizer returns for the marais receipt, shuffled.
var receiptWords = []ocr.Fragment{
	word("EUR", 150, 122),
	word("MARAIS", 110, 20),
	word("18/03/2024", 20, 70),
	word("HOTEL", 20, 21),
	word("TOTAL", 20, 120),
	word("180.00", 80, 121),
	word("LE", 86, 19),
	{Text: "~~", Confidence: 0.1, Box: ocr.BBox{X1: 200, Y1: 160, X2: 220, Y2: 170}},
}

func receiptPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 320, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, row := range []int{25, 75, 125} {
		for y := row; y < row+10; y++ {
			for x := 20; x < 260; x++ {
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type memCache struct {
	entries map[string]cache.Entry
	gets    int
}

func (m *memCache) Get(_ context.Context, key string) (cache.Entry, bool, error) {
	m.gets++
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *memCache) Put(_ context.Context, key string, e cache.Entry) error {
	m.entries[key] = e
	return nil
}

func newTestProcessor(rec ocr.Recognizer, c TextCache) *Processor {
	pre := preprocess.New(preprocess.Config{MinSide: 100}, nil)
	images := ocr.NewImagePipeline(pre, rec, ocr.PipelineConfig{MinConfidence: 0.3}, nil)
	reader := doctext.New(images, nil, doctext.Config{}, nil)
	return NewProcessor(nil, reader, fields.NewExtractor(nil, nil), c)
}

func TestProcessDocumentEndToEnd(t *testing.T) {
	rec := &stubRecognizer{frags: receiptWords}
	p := newTestProcessor(rec, nil)

	ti := p.ProcessDocument(context.Background(), receiptPNG(t), "marais.png")
	require.False(t, ti.HasError(), ti.RawText)
	require.NotNil(t, ti.Amount)
	assert.Equal(t, 180.0, *ti.Amount)
	assert.Equal(t, "EUR", *ti.Currency)
	assert.Equal(t, "2024-03-18", *ti.Date)
	assert.Equal(t, constants.Hotel, ti.Category)
	assert.Equal(t, "HOTEL LE MARAIS", *ti.Vendor)
	assert.Greater(t, ti.Confidence, 0.5)
	assert.Equal(t, "marais.png", ti.Filename)
	assert.Equal(t, ".png", ti.FileType)
	assert.Equal(t, "HOTEL LE MARAIS\n18/03/2024\nTOTAL 180.00 EUR", ti.RawText)
}

func TestProcessDocumentIsIdempotent(t *testing.T) {
	p := newTestProcessor(&stubRecognizer{frags: receiptWords}, nil)
	data := receiptPNG(t)
	a := p.ProcessDocument(context.Background(), data, "marais.png")
	b := p.ProcessDocument(context.Background(), data, "marais.png")
	assert.Equal(t, a, b)
}

func TestProcessDocumentGarbage(t *testing.T) {
	rec := &stubRecognizer{frags: receiptWords}
	p := newTestProcessor(rec, nil)

	for _, name := range []string{"pixel.png", "pixel.jpg", "pixel.heic"} {
		ti := p.ProcessDocument(context.Background(), []byte{0x01}, name)
		assert.Equal(t, constants.Unknown, ti.Category, name)
		assert.Nil(t, ti.Amount, name)
		assert.Nil(t, ti.Date, name)
		assert.True(t, ti.HasError(), name)
		assert.Contains(t, ti.RawText, name)
		assert.Zero(t, ti.Confidence)
	}
	assert.Zero(t, rec.calls, "undecodable bytes never reach the recognizer")
}

func TestProcessDocumentRecognizerUnavailable(t *testing.T) {
	rec := &stubRecognizer{err: common.NewAppError("OCR_UNAVAILABLE", "tesseract binary not found", common.ErrUnavailable)}
	p := newTestProcessor(rec, nil)

	ti := p.ProcessDocument(context.Background(), receiptPNG(t), "scan.png")
	assert.True(t, ti.HasError())
	assert.Equal(t, constants.Unknown, ti.Category)
	assert.Contains(t, ti.RawText, "recognizer unavailable")
}

func TestProcessDocumentDirectText(t *testing.T) {
	p := NewProcessor(nil, doctext.New(nil, nil, doctext.Config{}, nil), nil, nil)
	ti := p.ProcessDocument(context.Background(), []byte("Taxi ride Paris\nTOTAL 32,50 EUR\n12/05/2024"), "taxi.txt")
	require.False(t, ti.HasError())
	assert.Equal(t, 32.5, *ti.Amount)
	assert.Equal(t, constants.Transport, ti.Category)
	assert.Equal(t, "FR", *ti.CountryCode)
	assert.Equal(t, ".txt", ti.FileType)
}

type panicReader struct{}

func (panicReader) Extract(context.Context, []byte, string) doctext.Result { panic("boom") }

func TestProcessDocumentNeverPanics(t *testing.T) {
	p := NewProcessor(nil, panicReader{}, nil, nil)
	var ti fields.TicketInfo
	require.NotPanics(t, func() {
		ti = p.ProcessDocument(context.Background(), []byte("x"), "x.pdf")
	})
	assert.True(t, ti.HasError())
	assert.Equal(t, constants.Unknown, ti.Category)
	assert.Equal(t, ".pdf", ti.FileType)

	p = NewProcessor(nil, nil, nil, nil)
	ti = p.ProcessDocument(context.Background(), []byte("x"), "x.txt")
	assert.True(t, ti.HasError())
}

func TestProcessDocumentUsesCache(t *testing.T) {
	rec := &stubRecognizer{frags: receiptWords}
	mc := &memCache{entries: map[string]cache.Entry{}}
	p := newTestProcessor(rec, mc)
	data := receiptPNG(t)

	first := p.ProcessDocument(context.Background(), data, "marais.png")
	second := p.ProcessDocument(context.Background(), data, "copy.png")
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 2, mc.gets)
	assert.Equal(t, first.Amount, second.Amount)
	assert.Equal(t, "copy.png", second.Filename)
	require.Contains(t, mc.entries, cache.Key(data, ".png"))
	assert.Equal(t, constants.MethodImageOCR, mc.entries[cache.Key(data, ".png")].Method)

	// failed extractions are not cached
	p.ProcessDocument(context.Background(), []byte{0x01}, "bad.png")
	assert.Len(t, mc.entries, 1)
}

func TestReadTextCacheKeysOnExtension(t *testing.T) {
	mc := &memCache{entries: map[string]cache.Entry{}}
	p := NewProcessor(nil, doctext.New(nil, nil, doctext.Config{}, nil), nil, mc)
	data := []byte(`{\rtf1\ansi TOTAL 18,00 EUR\par}`)

	asText := p.ReadText(context.Background(), data, "note.txt")
	require.False(t, asText.Failed())
	asRTF := p.ReadText(context.Background(), data, "note.rtf")
	require.False(t, asRTF.Failed())

	assert.Contains(t, asText.Text, `\rtf1`)
	assert.NotContains(t, asRTF.Text, `\rtf1`)
	assert.Len(t, mc.entries, 2)
	assert.Contains(t, mc.entries, cache.Key(data, ".txt"))
	assert.Contains(t, mc.entries, cache.Key(data, ".rtf"))
}

func TestFileType(t *testing.T) {
	assert.Equal(t, ".pdf", FileType("Invoice.PDF"))
	assert.Equal(t, "", FileType("README"))
}
