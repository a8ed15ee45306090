package cwxml

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

func parseFloatList(n *Node) ([]float32, error) {
	var out []float32
	for _, w := range strings.Fields(n.Text) {
		v, err := parseFloat(w)
		if err != nil {
			return nil, formatErrorf(n.Tag, "", "bad float %q", w)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseIntList(n *Node) ([]int, error) {
	var out []int
	for _, w := range strings.Fields(n.Text) {
		v, err := strconv.Atoi(w)
		if err != nil {
			return nil, formatErrorf(n.Tag, "", "bad integer %q", w)
		}
		out = append(out, v)
	}
	return out, nil
}

func addFloatList(parent *Node, tag string, vals []float32) {
	var sb strings.Builder
	sb.WriteByte('\n')
	for _, v := range vals {
		sb.WriteString(FormatFloat(v))
		sb.WriteByte('\n')
	}
	parent.Add(NewNode(tag)).Text = sb.String()
}

func addIntList(parent *Node, tag string, vals []int) {
	var sb strings.Builder
	sb.WriteByte('\n')
	for _, v := range vals {
		sb.WriteString(strconv.Itoa(v))
		sb.WriteByte('\n')
	}
	parent.Add(NewNode(tag)).Text = sb.String()
}

func parseVectorRows(n *Node) ([]mgl32.Vec3, error) {
	var out []mgl32.Vec3
	text := strings.TrimSpace(n.Text)
	if text == "" {
		return nil, nil
	}
	for _, line := range strings.Split(text, "\n") {
		coords := strings.Split(line, ",")
		if len(coords) != 3 {
			return nil, formatErrorf(n.Tag, "", "expected 3 coordinates, got %d", len(coords))
		}
		var v mgl32.Vec3
		for i, c := range coords {
			f, err := parseFloat(c)
			if err != nil {
				return nil, formatErrorf(n.Tag, "", "bad float %q", c)
			}
			v[i] = f
		}
		out = append(out, v)
	}
	return out, nil
}

func addVectorRows(parent *Node, tag string, vals []mgl32.Vec3) {
	var sb strings.Builder
	sb.WriteByte('\n')
	for _, v := range vals {
		sb.WriteString(FormatFloat(v[0]))
		sb.WriteString(", ")
		sb.WriteString(FormatFloat(v[1]))
		sb.WriteString(", ")
		sb.WriteString(FormatFloat(v[2]))
		sb.WriteByte('\n')
	}
	parent.Add(NewNode(tag)).Text = sb.String()
}

// VerletClothEdge is one distance constraint of the simulation. Dummy
// padding edges reference vertex 0 on both ends.
type VerletClothEdge struct {
	Vertex0           int
	Vertex1           int
	LengthSqr         float32
	Weight0           float32
	CompressionWeight float32
}

func (e *VerletClothEdge) Parse(n *Node) error {
	var err error
	var v int64
	if v, err = n.ValueInt("Vertex0", 0); err != nil {
		return err
	}
	e.Vertex0 = int(v)
	if v, err = n.ValueInt("Vertex1", 0); err != nil {
		return err
	}
	e.Vertex1 = int(v)
	if e.LengthSqr, err = n.ValueFloat("LengthSqr", 0); err != nil {
		return err
	}
	if e.Weight0, err = n.ValueFloat("Weight0", 0); err != nil {
		return err
	}
	if e.CompressionWeight, err = n.ValueFloat("CompressionWeight", 0); err != nil {
		return err
	}
	return nil
}

func (e *VerletClothEdge) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "Vertex0", int64(e.Vertex0))
	AddValueInt(n, "Vertex1", int64(e.Vertex1))
	AddValueFloat(n, "LengthSqr", e.LengthSqr)
	AddValueFloat(n, "Weight0", e.Weight0)
	AddValueFloat(n, "CompressionWeight", e.CompressionWeight)
	return n
}

// VerletCloth keeps pinned vertices in the leading index range
// [0, PinnedVerticesCount).
type VerletCloth struct {
	BBMin               mgl32.Vec3
	BBMax               mgl32.Vec3
	SwitchDistanceUp    float32
	SwitchDistanceDown  float32
	Flags               int64
	DynamicPinListSize  int64
	ClothWeight         float32
	VertexPositions     []mgl32.Vec3
	VertexNormals       []mgl32.Vec3
	PinnedVerticesCount int64
	Edges               []*VerletClothEdge
	CustomEdges         []*VerletClothEdge
}

func (v *VerletCloth) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { v.BBMin, e = n.Vector3("BBMin"); return })
	read(func() (e error) { v.BBMax, e = n.Vector3("BBMax"); return })
	read(func() (e error) { v.SwitchDistanceUp, e = n.ValueFloat("SwitchDistanceUp", 0); return })
	read(func() (e error) { v.SwitchDistanceDown, e = n.ValueFloat("SwitchDistanceDown", 0); return })
	read(func() (e error) { v.Flags, e = n.ValueInt("Flags", 0); return })
	read(func() (e error) { v.DynamicPinListSize, e = n.ValueInt("DynamicPinListSize", 0); return })
	read(func() (e error) { v.ClothWeight, e = n.ValueFloat("ClothWeight", 0); return })
	read(func() (e error) { v.PinnedVerticesCount, e = n.ValueInt("PinnedVerticesCount", 0); return })
	if err != nil {
		return err
	}
	if c := n.Child("VertexPositions"); c != nil {
		if v.VertexPositions, err = parseVectorRows(c); err != nil {
			return err
		}
	}
	if c := n.Child("VertexNormals"); c != nil {
		if v.VertexNormals, err = parseVectorRows(c); err != nil {
			return err
		}
	}
	parseEdges := func(tag string) ([]*VerletClothEdge, error) {
		c := n.Child(tag)
		if c == nil {
			return nil, nil
		}
		var out []*VerletClothEdge
		for _, item := range c.ChildrenByTag("Item") {
			e := &VerletClothEdge{}
			if err := e.Parse(item); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	}
	if v.Edges, err = parseEdges("Edges"); err != nil {
		return err
	}
	if v.CustomEdges, err = parseEdges("CustomEdges"); err != nil {
		return err
	}
	return nil
}

func (v *VerletCloth) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddVector3(n, "BBMin", v.BBMin)
	AddVector3(n, "BBMax", v.BBMax)
	AddValueFloat(n, "SwitchDistanceUp", v.SwitchDistanceUp)
	AddValueFloat(n, "SwitchDistanceDown", v.SwitchDistanceDown)
	AddValueInt(n, "Flags", v.Flags)
	AddValueInt(n, "DynamicPinListSize", v.DynamicPinListSize)
	AddValueFloat(n, "ClothWeight", v.ClothWeight)
	addVectorRows(n, "VertexPositions", v.VertexPositions)
	if len(v.VertexNormals) != 0 {
		addVectorRows(n, "VertexNormals", v.VertexNormals)
	}
	AddValueInt(n, "PinnedVerticesCount", v.PinnedVerticesCount)
	en := n.Add(NewNode("Edges"))
	for _, e := range v.Edges {
		en.Add(e.Serialize("Item"))
	}
	if len(v.CustomEdges) != 0 {
		cn := n.Add(NewNode("CustomEdges"))
		for _, e := range v.CustomEdges {
			cn.Add(e.Serialize("Item"))
		}
	}
	return n
}

// ClothBridge translates between render-mesh vertex order and cloth
// vertex order. The display map is indexed by render vertex.
type ClothBridge struct {
	VertexCountHigh    int64
	PinRadiusHigh      []float32
	VertexWeightsHigh  []float32
	InflationScaleHigh []float32
	DisplayMapHigh     []int
	PinnableList       []int
}

func (b *ClothBridge) Parse(n *Node) error {
	var err error
	if b.VertexCountHigh, err = n.ValueInt("VertexCountHigh", 0); err != nil {
		return err
	}
	if c := n.Child("PinRadiusHigh"); c != nil {
		if b.PinRadiusHigh, err = parseFloatList(c); err != nil {
			return err
		}
	}
	if c := n.Child("VertexWeightsHigh"); c != nil {
		if b.VertexWeightsHigh, err = parseFloatList(c); err != nil {
			return err
		}
	}
	if c := n.Child("InflationScaleHigh"); c != nil {
		if b.InflationScaleHigh, err = parseFloatList(c); err != nil {
			return err
		}
	}
	if c := n.Child("DisplayMapHigh"); c != nil {
		if b.DisplayMapHigh, err = parseIntList(c); err != nil {
			return err
		}
	}
	if c := n.Child("PinnableList"); c != nil {
		if b.PinnableList, err = parseIntList(c); err != nil {
			return err
		}
	}
	return nil
}

func (b *ClothBridge) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "VertexCountHigh", b.VertexCountHigh)
	addFloatList(n, "PinRadiusHigh", b.PinRadiusHigh)
	addFloatList(n, "VertexWeightsHigh", b.VertexWeightsHigh)
	addFloatList(n, "InflationScaleHigh", b.InflationScaleHigh)
	addIntList(n, "DisplayMapHigh", b.DisplayMapHigh)
	addIntList(n, "PinnableList", b.PinnableList)
	return n
}

type MorphMapData struct {
	PolyCount int64
}

func (m *MorphMapData) Parse(n *Node) error {
	var err error
	m.PolyCount, err = n.ValueInt("PolyCount", 0)
	return err
}

func (m *MorphMapData) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "PolyCount", m.PolyCount)
	return n
}

type MorphController struct {
	MapDataHigh *MorphMapData
}

func (m *MorphController) Parse(n *Node) error {
	if c := n.Child("MapDataHigh"); c != nil {
		m.MapDataHigh = &MorphMapData{}
		return m.MapDataHigh.Parse(c)
	}
	return nil
}

func (m *MorphController) Serialize(tag string) *Node {
	n := NewNode(tag)
	if m.MapDataHigh != nil {
		n.Add(m.MapDataHigh.Serialize("MapDataHigh"))
	}
	return n
}

// ControllerOwnsMorphAndBridge is the flags value for a controller that
// owns both its morph controller and its bridge.
const ControllerOwnsMorphAndBridge = 3

type ClothController struct {
	Name            string
	Flags           int64
	Bridge          *ClothBridge
	MorphController *MorphController
	ClothHigh       *VerletCloth
	ClothMed        *VerletCloth
	ClothLow        *VerletCloth
	ClothVlow       *VerletCloth
}

func (c *ClothController) Parse(n *Node) error {
	var err error
	c.Name = n.TextOf("Name")
	if c.Flags, err = n.ValueInt("Flags", 0); err != nil {
		return err
	}
	if bn := n.Child("BridgeSimGfx"); bn != nil {
		c.Bridge = &ClothBridge{}
		if err := c.Bridge.Parse(bn); err != nil {
			return err
		}
	}
	if mn := n.Child("MorphController"); mn != nil {
		c.MorphController = &MorphController{}
		if err := c.MorphController.Parse(mn); err != nil {
			return err
		}
	}
	parseVerlet := func(tag string) (*VerletCloth, error) {
		vn := n.Child(tag)
		if vn == nil {
			return nil, nil
		}
		v := &VerletCloth{}
		if err := v.Parse(vn); err != nil {
			return nil, err
		}
		return v, nil
	}
	if c.ClothHigh, err = parseVerlet("ClothHigh"); err != nil {
		return err
	}
	if c.ClothMed, err = parseVerlet("ClothMed"); err != nil {
		return err
	}
	if c.ClothLow, err = parseVerlet("ClothLow"); err != nil {
		return err
	}
	if c.ClothVlow, err = parseVerlet("ClothVlow"); err != nil {
		return err
	}
	return nil
}

func (c *ClothController) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", c.Name)
	AddValueInt(n, "Flags", c.Flags)
	if c.Bridge != nil {
		n.Add(c.Bridge.Serialize("BridgeSimGfx"))
	}
	if c.MorphController != nil {
		n.Add(c.MorphController.Serialize("MorphController"))
	}
	if c.ClothHigh != nil {
		n.Add(c.ClothHigh.Serialize("ClothHigh"))
	}
	if c.ClothMed != nil {
		n.Add(c.ClothMed.Serialize("ClothMed"))
	}
	if c.ClothLow != nil {
		n.Add(c.ClothLow.Serialize("ClothLow"))
	}
	if c.ClothVlow != nil {
		n.Add(c.ClothVlow.Serialize("ClothVlow"))
	}
	return n
}

type EnvironmentCloth struct {
	Flags      int64
	Drawable   *Drawable
	Controller *ClothController
	UserData   string
}

func (c *EnvironmentCloth) Parse(n *Node) error {
	var err error
	if c.Flags, err = n.ValueInt("Flags", 0); err != nil {
		return err
	}
	if dn := n.Child("Drawable"); dn != nil {
		c.Drawable = &Drawable{}
		if err := c.Drawable.Parse(dn); err != nil {
			return err
		}
	}
	if cn := n.Child("Controller"); cn != nil {
		c.Controller = &ClothController{}
		if err := c.Controller.Parse(cn); err != nil {
			return err
		}
	}
	c.UserData = n.TextOf("UserData")
	return nil
}

func (c *EnvironmentCloth) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "Flags", c.Flags)
	if c.Drawable != nil {
		n.Add(c.Drawable.Serialize("Drawable"))
	}
	if c.Controller != nil {
		n.Add(c.Controller.Serialize("Controller"))
	}
	if c.UserData != "" {
		AddText(n, "UserData", c.UserData)
	}
	return n
}
