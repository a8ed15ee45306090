package cwxml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLeafCodecs(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<Drawable>
  <LodDistHigh value="9998" />
  <FlagsMed value="0" />
  <BoundingSphereRadius value="1.5" />
  <BoundingBoxMin x="-1" y="-2.25" z="-3" />
  <Name>vehicle_paint1</Name>
  <Flags>1 2 32</Flags>
</Drawable>`
	root, err := ReadDocument(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := root.ValueInt("LodDistHigh", 0); v != 9998 {
		t.Errorf("LodDistHigh=%d; expected 9998", v)
	}
	if v, _ := root.ValueFloat("BoundingSphereRadius", 0); v != 1.5 {
		t.Errorf("BoundingSphereRadius=%f; expected 1.5", v)
	}
	// absent leaf yields the declared default
	if v, _ := root.ValueFloat("LodDistVlow", 9998); v != 9998 {
		t.Errorf("absent leaf default=%f; expected 9998", v)
	}
	vec, err := root.Vector3("BoundingBoxMin")
	if err != nil {
		t.Fatal(err)
	}
	if vec != (mgl32.Vec3{-1, -2.25, -3}) {
		t.Errorf("BoundingBoxMin=%v", vec)
	}
	if s := root.TextOf("Name"); s != "vehicle_paint1" {
		t.Errorf("Name=%q", s)
	}
	flags := root.FlagsOf("Flags")
	if len(flags) != 3 || flags[2] != "32" {
		t.Errorf("Flags=%v", flags)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	root := NewNode("Drawable")
	AddValueFloat(root, "LodDistHigh", 120.5)
	AddVector3(root, "BoundingBoxMax", mgl32.Vec3{1, 2, 3.5})
	AddText(root, "Name", "prop_bench_01a")

	var buf bytes.Buffer
	if err := WriteDocument(&buf, root); err != nil {
		t.Fatal(err)
	}
	back, err := ReadDocument(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := back.ValueFloat("LodDistHigh", 0); v != 120.5 {
		t.Errorf("LodDistHigh=%f after round trip", v)
	}
	vec, err := back.Vector3("BoundingBoxMax")
	if err != nil {
		t.Fatal(err)
	}
	if vec != (mgl32.Vec3{1, 2, 3.5}) {
		t.Errorf("BoundingBoxMax=%v after round trip", vec)
	}
	if s := back.TextOf("Name"); s != "prop_bench_01a" {
		t.Errorf("Name=%q after round trip", s)
	}
}

var formatFloatTests = []struct {
	in  float32
	out string
}{
	{0, "0"},
	{1, "1"},
	{-1.5, "-1.5"},
	{0.25, "0.25"},
	{9998, "9998"},
}

func TestFormatFloat(t *testing.T) {
	for _, test := range formatFloatTests {
		if got := FormatFloat(test.in); got != test.out {
			t.Errorf("FormatFloat(%v)=%q; expected %q", test.in, got, test.out)
		}
	}
}

func TestBadFloatIsFormatError(t *testing.T) {
	doc := `<Drawable><LodDistHigh value="abc" /></Drawable>`
	root, err := ReadDocument(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	_, err = root.ValueFloat("LodDistHigh", 0)
	if err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	if _, ok := err.(*FormatError); !ok {
		t.Errorf("got %T; expected *FormatError", err)
	}
}
