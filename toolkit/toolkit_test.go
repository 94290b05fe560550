package toolkit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

type fakeTool struct {
	name string
}

func (f *fakeTool) Spec() Spec {
	return Spec{
		Name:  f.name,
		Label: I18nString{EnUS: f.name},
	}
}

func (f *fakeTool) Invoke(ctx context.Context, req *Request, emit EmitFunc) error {
	return emit(TextMessage("ran " + f.name))
}

func TestRegistryOrderAndLookup(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"counter", "splitter", "extractor"} {
		if err := registry.Register(&fakeTool{name: name}); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	names := registry.Names()
	if len(names) != 3 || names[0] != "counter" || names[2] != "extractor" {
		t.Errorf("Names should preserve registration order, got %v", names)
	}

	if _, ok := registry.Get("splitter"); !ok {
		t.Error("Get should find a registered tool")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Error("Get should not find an unregistered tool")
	}

	if err := registry.Register(&fakeTool{name: "counter"}); err == nil {
		t.Error("Registering a duplicate name should fail")
	}
	if err := registry.Register(&fakeTool{name: ""}); err == nil {
		t.Error("Registering a nameless tool should fail")
	}
}

func TestCollectorPreservesEmissionOrder(t *testing.T) {
	collector := &Collector{}

	collector.Emit(TextMessage("first"))
	collector.Emit(BlobMessage([]byte{1, 2, 3}, BlobMeta{MimeType: "application/pdf", FileName: "a.pdf"}))
	collector.Emit(TextMessage("last"))

	if len(collector.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(collector.Messages))
	}
	if collector.Messages[0].Kind != MessageText || collector.Messages[1].Kind != MessageBlob {
		t.Error("Messages arrived out of order")
	}

	texts := collector.Texts()
	if len(texts) != 2 || texts[0] != "first" || texts[1] != "last" {
		t.Errorf("Texts = %v, want [first last]", texts)
	}
	blobs := collector.Blobs()
	if len(blobs) != 1 || blobs[0].Meta.FileName != "a.pdf" {
		t.Errorf("Blobs should carry their metadata, got %+v", blobs)
	}
}

func TestJSONMessage(t *testing.T) {
	msg, err := JSONMessage(map[string]int{"page1": 1})
	if err != nil {
		t.Fatalf("JSONMessage failed: %v", err)
	}
	if msg.Kind != MessageJSON {
		t.Errorf("Kind = %s, want json", msg.Kind)
	}

	var decoded map[string]int
	if err := json.Unmarshal(msg.JSON, &decoded); err != nil {
		t.Fatalf("Payload should round trip: %v", err)
	}
	if decoded["page1"] != 1 {
		t.Errorf("Decoded payload = %v", decoded)
	}
}

func TestRequestParamCoercion(t *testing.T) {
	req := &Request{
		Params: map[string]any{
			"pages":    "1,3,5",
			"zoom":     float64(3),
			"count":    7,
			"formZoom": "2.5",
			"bad":      []string{"nope"},
		},
	}

	if s, ok := req.StringParam("pages"); !ok || s != "1,3,5" {
		t.Errorf("StringParam(pages) = %q, %v", s, ok)
	}
	if _, ok := req.StringParam("zoom"); ok {
		t.Error("StringParam should reject a number value")
	}
	if _, ok := req.StringParam("missing"); ok {
		t.Error("StringParam should report a missing key")
	}

	if n, ok := req.NumberParam("zoom"); !ok || n != 3 {
		t.Errorf("NumberParam(zoom) = %v, %v", n, ok)
	}
	if n, ok := req.NumberParam("count"); !ok || n != 7 {
		t.Errorf("NumberParam(count) = %v, %v", n, ok)
	}
	if n, ok := req.NumberParam("formZoom"); !ok || n != 2.5 {
		t.Errorf("NumberParam should parse numeric strings, got %v, %v", n, ok)
	}
	if _, ok := req.NumberParam("pages"); ok {
		t.Error("NumberParam should reject a non-numeric string")
	}
	if _, ok := req.NumberParam("bad"); ok {
		t.Error("NumberParam should reject other types")
	}
}

func TestI18nWireShape(t *testing.T) {
	t.Log("The UI depends on en_US/zh_Hans keys in the serialized schema")

	param := PDFContentParam(I18nString{EnUS: "The PDF file to process.", ZhHans: "要处理的 PDF 文件。"})
	data, err := json.Marshal(param)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, want := range []string{`"en_US"`, `"zh_Hans"`, `"pdf_content"`, `"application/pdf"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Serialized param should contain %s, got %s", want, data)
		}
	}
}
