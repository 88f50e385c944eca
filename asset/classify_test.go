package asset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pierrec/lz4/v4"

	"github.com/pithecene-io/macadam/types"
)

func TestClassify_ByExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want types.AssetKind
	}{
		{"png", types.KindImage},
		{"PNG", types.KindImage},
		{"jpg", types.KindImage},
		{"jpeg", types.KindImage},
		{"bmp", types.KindImage},
		{"tga", types.KindImage},
		{"svg", types.KindSvg},
		{"mp3", types.KindAudio},
		{"ogg", types.KindAudio},
		{"flac", types.KindAudio},
		{"wav", types.KindAudio},
		{"mp4", types.KindVideo},
		{"webm", types.KindVideo},
	}
	for _, tc := range cases {
		got, err := Classify([]byte("irrelevant"), tc.ext)
		if err != nil {
			t.Errorf("Classify(%q): %v", tc.ext, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.ext, got, tc.want)
		}
	}
}

func TestClassify_UnknownExtension(t *testing.T) {
	_, err := Classify([]byte("x"), "exe")
	if !errors.Is(err, ErrUnknownExtension) {
		t.Fatalf("want ErrUnknownExtension, got %v", err)
	}
}

func TestSupportedExtension(t *testing.T) {
	for _, ext := range []string{"png", "svg", "rbxm", "rbxmx", "wav"} {
		if !SupportedExtension(ext) {
			t.Errorf("SupportedExtension(%q) = false", ext)
		}
	}
	for _, ext := range []string{"txt", "exe", ""} {
		if SupportedExtension(ext) {
			t.Errorf("SupportedExtension(%q) = true", ext)
		}
	}
}

func TestClassify_BinaryContainer_Model(t *testing.T) {
	data := buildBinaryContainer(t, []string{"Part", "MeshPart"}, false)

	kind, err := Classify(data, "rbxm")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if kind != types.KindModel {
		t.Fatalf("kind = %s, want model", kind)
	}
}

func TestClassify_BinaryContainer_Animation(t *testing.T) {
	for _, compress := range []bool{false, true} {
		data := buildBinaryContainer(t, []string{"KeyframeSequence", "Keyframe"}, compress)

		kind, err := Classify(data, "rbxm")
		if err != nil {
			t.Fatalf("Classify (compress=%v): %v", compress, err)
		}
		if kind != types.KindAnimation {
			t.Fatalf("kind = %s, want animation (compress=%v)", kind, compress)
		}
	}
}

func TestClassify_BinaryContainer_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"bad magic": []byte("not a container at all"),
		"truncated": buildBinaryContainer(t, []string{"Part"}, false)[:20],
	}
	for name, data := range cases {
		if _, err := Classify(data, "rbxm"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestClassify_XMLContainer(t *testing.T) {
	model := []byte(`<roblox version="4"><Item class="Model"><Properties/></Item></roblox>`)
	anim := []byte(`<roblox version="4"><Item class="KeyframeSequence"><Item class="Keyframe"/></Item></roblox>`)

	kind, err := Classify(model, "rbxmx")
	if err != nil {
		t.Fatalf("Classify model: %v", err)
	}
	if kind != types.KindModel {
		t.Fatalf("kind = %s, want model", kind)
	}

	kind, err = Classify(anim, "rbxmx")
	if err != nil {
		t.Fatalf("Classify animation: %v", err)
	}
	if kind != types.KindAnimation {
		t.Fatalf("kind = %s, want animation", kind)
	}
}

func TestClassify_XMLContainer_Malformed(t *testing.T) {
	cases := map[string][]byte{
		"wrong root":    []byte(`<scene><Item class="Model"/></scene>`),
		"missing class": []byte(`<roblox><Item name="Model"/></roblox>`),
		"not xml":       []byte(`{"class": "Model"}`),
	}
	for name, data := range cases {
		if _, err := Classify(data, "rbxmx"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// buildBinaryContainer synthesizes a minimal binary scene container with
// one INST chunk per class followed by an END chunk.
func buildBinaryContainer(t *testing.T, classes []string, compress bool) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.Write(binaryMagic)

	header := make([]byte, binaryHeaderLen)
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(classes)))
	binary.LittleEndian.PutUint32(header[6:10], uint32(len(classes)))
	buf.Write(header)

	for i, class := range classes {
		payload := make([]byte, 8, 8+len(class)+64)
		binary.LittleEndian.PutUint32(payload[0:4], uint32(i))
		binary.LittleEndian.PutUint32(payload[4:8], uint32(len(class)))
		payload = append(payload, class...)
		// Trailing padding makes the payload compressible so the lz4
		// path is exercised when compress is set.
		payload = append(payload, make([]byte, 64)...)

		writeChunk(t, &buf, "INST", payload, compress)
	}

	writeChunk(t, &buf, "END\x00", []byte("</roblox>"), false)
	return buf.Bytes()
}

func writeChunk(t *testing.T, buf *bytes.Buffer, name string, payload []byte, compress bool) {
	t.Helper()

	compressedLen := uint32(0)
	out := payload
	if compress {
		dst := make([]byte, lz4.CompressBlockBound(len(payload)))
		var c lz4.Compressor
		n, err := c.CompressBlock(payload, dst)
		if err != nil {
			t.Fatalf("lz4 compress: %v", err)
		}
		if n == 0 {
			t.Fatal("payload incompressible; enlarge the padding")
		}
		out = dst[:n]
		compressedLen = uint32(n)
	}

	header := make([]byte, chunkHeaderLen)
	copy(header[0:4], name)
	binary.LittleEndian.PutUint32(header[4:8], compressedLen)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))
	buf.Write(header)
	buf.Write(out)
}
