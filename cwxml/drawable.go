package cwxml

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/arifsezeraktas/Sollumz/status"
)

type TextureItem struct {
	Name       string
	Unk32      int64
	Usage      string
	UsageFlags []string
	ExtraFlags int64
	Width      int64
	Height     int64
	MipLevels  int64
	Format     string
	FileName   string
}

func (t *TextureItem) Parse(n *Node) error {
	var err error
	t.Name = n.TextOf("Name")
	if t.Unk32, err = n.ValueInt("Unk32", 0); err != nil {
		return err
	}
	t.Usage = n.TextOf("Usage")
	t.UsageFlags = n.FlagsOf("UsageFlags")
	if t.ExtraFlags, err = n.ValueInt("ExtraFlags", 0); err != nil {
		return err
	}
	if t.Width, err = n.ValueInt("Width", 0); err != nil {
		return err
	}
	if t.Height, err = n.ValueInt("Height", 0); err != nil {
		return err
	}
	if t.MipLevels, err = n.ValueInt("MipLevels", 0); err != nil {
		return err
	}
	t.Format = n.TextOf("Format")
	t.FileName = n.TextOf("FileName")
	return nil
}

func (t *TextureItem) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", t.Name)
	AddValueInt(n, "Unk32", t.Unk32)
	AddText(n, "Usage", t.Usage)
	AddFlags(n, "UsageFlags", t.UsageFlags)
	AddValueInt(n, "ExtraFlags", t.ExtraFlags)
	AddValueInt(n, "Width", t.Width)
	AddValueInt(n, "Height", t.Height)
	AddValueInt(n, "MipLevels", t.MipLevels)
	AddText(n, "Format", t.Format)
	AddText(n, "FileName", t.FileName)
	return n
}

// ShaderParameter variants are discriminated by a `type` attribute on
// the parameter item node; the name lives in a `name` attribute.
type ShaderParameter interface {
	ParamType() string
	ParamName() string
	Parse(n *Node) error
	Serialize(tag string) *Node
}

var shaderParameterConstructors = map[string]func() ShaderParameter{
	"Texture": func() ShaderParameter { return &TextureShaderParameter{} },
	"Vector":  func() ShaderParameter { return &VectorShaderParameter{} },
	"Array":   func() ShaderParameter { return &ArrayShaderParameter{} },
}

func ParseShaderParameterNode(n *Node) (ShaderParameter, error) {
	t, ok := n.Attr("type")
	if !ok {
		return nil, formatErrorf(n.Tag, "type", "missing shader parameter discriminator")
	}
	ctor, ok := shaderParameterConstructors[t]
	if !ok {
		status.Warning("dropping shader parameter with unknown type %q", t)
		return nil, nil
	}
	p := ctor()
	if err := p.Parse(n); err != nil {
		return nil, err
	}
	return p, nil
}

type TextureShaderParameter struct {
	Name        string
	TextureName string
}

func (p *TextureShaderParameter) ParamType() string { return "Texture" }
func (p *TextureShaderParameter) ParamName() string { return p.Name }

func (p *TextureShaderParameter) Parse(n *Node) error {
	p.Name, _ = n.Attr("name")
	p.TextureName = n.TextOf("Name")
	return nil
}

func (p *TextureShaderParameter) Serialize(tag string) *Node {
	n := NewNode(tag).SetAttr("name", p.Name).SetAttr("type", p.ParamType())
	AddText(n, "Name", p.TextureName)
	return n
}

type VectorShaderParameter struct {
	Name  string
	Value mgl32.Vec4
}

func (p *VectorShaderParameter) ParamType() string { return "Vector" }
func (p *VectorShaderParameter) ParamName() string { return p.Name }

func (p *VectorShaderParameter) Parse(n *Node) error {
	p.Name, _ = n.Attr("name")
	for i, name := range [4]string{"x", "y", "z", "w"} {
		raw, ok := n.Attr(name)
		if !ok {
			continue
		}
		f, err := parseFloat(raw)
		if err != nil {
			return formatErrorf(n.Tag, name, "bad float %q", raw)
		}
		p.Value[i] = f
	}
	return nil
}

func (p *VectorShaderParameter) Serialize(tag string) *Node {
	return NewNode(tag).
		SetAttr("name", p.Name).
		SetAttr("type", p.ParamType()).
		SetAttr("x", FormatFloat(p.Value[0])).
		SetAttr("y", FormatFloat(p.Value[1])).
		SetAttr("z", FormatFloat(p.Value[2])).
		SetAttr("w", FormatFloat(p.Value[3]))
}

type ArrayShaderParameter struct {
	Name   string
	Values []mgl32.Vec4
}

func (p *ArrayShaderParameter) ParamType() string { return "Array" }
func (p *ArrayShaderParameter) ParamName() string { return p.Name }

func (p *ArrayShaderParameter) Parse(n *Node) error {
	p.Name, _ = n.Attr("name")
	for _, c := range n.ChildrenByTag("Value") {
		var v mgl32.Vec4
		for i, name := range [4]string{"x", "y", "z", "w"} {
			raw, ok := c.Attr(name)
			if !ok {
				return formatErrorf(c.Tag, name, "missing attribute")
			}
			f, err := parseFloat(raw)
			if err != nil {
				return formatErrorf(c.Tag, name, "bad float %q", raw)
			}
			v[i] = f
		}
		p.Values = append(p.Values, v)
	}
	return nil
}

func (p *ArrayShaderParameter) Serialize(tag string) *Node {
	n := NewNode(tag).SetAttr("name", p.Name).SetAttr("type", p.ParamType())
	for _, v := range p.Values {
		AddVector4(n, "Value", v)
	}
	return n
}

type Shader struct {
	Name         string
	FileName     string
	RenderBucket int64
	Parameters   []ShaderParameter
}

func (s *Shader) Parse(n *Node) error {
	var err error
	s.Name = n.TextOf("Name")
	s.FileName = n.TextOf("FileName")
	if s.RenderBucket, err = n.ValueInt("RenderBucket", 0); err != nil {
		return err
	}
	if pn := n.Child("Parameters"); pn != nil {
		for _, item := range pn.ChildrenByTag("Item") {
			p, err := ParseShaderParameterNode(item)
			if err != nil {
				return err
			}
			if p != nil {
				s.Parameters = append(s.Parameters, p)
			}
		}
	}
	return nil
}

func (s *Shader) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", s.Name)
	AddText(n, "FileName", s.FileName)
	AddValueInt(n, "RenderBucket", s.RenderBucket)
	pn := n.Add(NewNode("Parameters"))
	for _, p := range s.Parameters {
		pn.Add(p.Serialize("Item"))
	}
	return n
}

type ShaderGroup struct {
	Unknown30         int64
	TextureDictionary []*TextureItem
	Shaders           []*Shader
}

func (g *ShaderGroup) Parse(n *Node) error {
	var err error
	if g.Unknown30, err = n.ValueInt("Unknown30", 0); err != nil {
		return err
	}
	if tn := n.Child("TextureDictionary"); tn != nil {
		for _, item := range tn.ChildrenByTag("Item") {
			t := &TextureItem{}
			if err := t.Parse(item); err != nil {
				return err
			}
			g.TextureDictionary = append(g.TextureDictionary, t)
		}
	}
	if sn := n.Child("Shaders"); sn != nil {
		for _, item := range sn.ChildrenByTag("Item") {
			s := &Shader{}
			if err := s.Parse(item); err != nil {
				return err
			}
			g.Shaders = append(g.Shaders, s)
		}
	}
	return nil
}

func (g *ShaderGroup) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "Unknown30", g.Unknown30)
	tn := n.Add(NewNode("TextureDictionary"))
	for _, t := range g.TextureDictionary {
		tn.Add(t.Serialize("Item"))
	}
	sn := n.Add(NewNode("Shaders"))
	for _, s := range g.Shaders {
		sn.Add(s.Serialize("Item"))
	}
	return n
}

// Bone tags are the stable cross-reference key used by physics children
// and joints; the array index is transient.
type Bone struct {
	Name         string
	Tag          int64
	Index        int64
	ParentIndex  int64
	SiblingIndex int64
	Flags        []string
	Translation  mgl32.Vec3
	Rotation     mgl32.Vec4
	Scale        mgl32.Vec3
	TransformUnk mgl32.Vec4
}

func (b *Bone) Parse(n *Node) error {
	var err error
	b.Name = n.TextOf("Name")
	if b.Tag, err = n.ValueInt("Tag", 0); err != nil {
		return err
	}
	if b.Index, err = n.ValueInt("Index", 0); err != nil {
		return err
	}
	if b.ParentIndex, err = n.ValueInt("ParentIndex", -1); err != nil {
		return err
	}
	if b.SiblingIndex, err = n.ValueInt("SiblingIndex", -1); err != nil {
		return err
	}
	b.Flags = n.FlagsOf("Flags")
	if b.Translation, err = n.Vector3("Translation"); err != nil {
		return err
	}
	if b.Rotation, err = n.Vector4("Rotation"); err != nil {
		return err
	}
	if b.Scale, err = n.Vector3("Scale"); err != nil {
		return err
	}
	if b.TransformUnk, err = n.Vector4("TransformUnk"); err != nil {
		return err
	}
	return nil
}

func (b *Bone) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", b.Name)
	AddValueInt(n, "Tag", b.Tag)
	AddValueInt(n, "Index", b.Index)
	AddValueInt(n, "ParentIndex", b.ParentIndex)
	AddValueInt(n, "SiblingIndex", b.SiblingIndex)
	AddFlags(n, "Flags", b.Flags)
	AddVector3(n, "Translation", b.Translation)
	AddVector4(n, "Rotation", b.Rotation)
	AddVector3(n, "Scale", b.Scale)
	AddVector4(n, "TransformUnk", b.TransformUnk)
	return n
}

func (b *Bone) HasFlag(name string) bool {
	return hasFlag(b.Flags, name)
}

// RotationQuat interprets the stored x,y,z,w rotation as a quaternion.
func (b *Bone) RotationQuat() mgl32.Quat {
	return mgl32.Quat{W: b.Rotation[3], V: mgl32.Vec3{b.Rotation[0], b.Rotation[1], b.Rotation[2]}}
}

// LocalTransform is translation * rotation * scale.
func (b *Bone) LocalTransform() mgl32.Mat4 {
	t := mgl32.Translate3D(b.Translation[0], b.Translation[1], b.Translation[2])
	r := b.RotationQuat().Mat4()
	s := mgl32.Scale3D(b.Scale[0], b.Scale[1], b.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// Defaults copied from shipped assets; zeroing the two middle words
// crashes the game on some streamed peds.
const (
	SkeletonDefaultUnknown1C = 16777216
	SkeletonDefaultUnknown50 = 567032952
	SkeletonDefaultUnknown54 = 2134582703
	SkeletonDefaultUnknown58 = 2503907467
)

type Skeleton struct {
	Unknown1C int64
	Unknown50 int64
	Unknown54 int64
	Unknown58 int64
	Bones     []*Bone
}

func NewSkeleton() *Skeleton {
	return &Skeleton{
		Unknown1C: SkeletonDefaultUnknown1C,
		Unknown50: SkeletonDefaultUnknown50,
		Unknown54: SkeletonDefaultUnknown54,
		Unknown58: SkeletonDefaultUnknown58,
	}
}

func (s *Skeleton) Parse(n *Node) error {
	var err error
	if s.Unknown1C, err = n.ValueInt("Unknown1C", SkeletonDefaultUnknown1C); err != nil {
		return err
	}
	if s.Unknown50, err = n.ValueInt("Unknown50", SkeletonDefaultUnknown50); err != nil {
		return err
	}
	if s.Unknown54, err = n.ValueInt("Unknown54", SkeletonDefaultUnknown54); err != nil {
		return err
	}
	if s.Unknown58, err = n.ValueInt("Unknown58", SkeletonDefaultUnknown58); err != nil {
		return err
	}
	if bn := n.Child("Bones"); bn != nil {
		for _, item := range bn.ChildrenByTag("Item") {
			b := &Bone{}
			if err := b.Parse(item); err != nil {
				return err
			}
			s.Bones = append(s.Bones, b)
		}
	}
	return nil
}

func (s *Skeleton) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "Unknown1C", s.Unknown1C)
	AddValueInt(n, "Unknown50", s.Unknown50)
	AddValueInt(n, "Unknown54", s.Unknown54)
	AddValueInt(n, "Unknown58", s.Unknown58)
	bn := n.Add(NewNode("Bones"))
	for _, b := range s.Bones {
		bn.Add(b.Serialize("Item"))
	}
	return n
}

// BoneByTag builds a tag lookup once; tags are stable while indices are
// not, so repeated linear scans over the bone list are avoided.
func (s *Skeleton) BoneByTag() map[int64]*Bone {
	m := make(map[int64]*Bone, len(s.Bones))
	for _, b := range s.Bones {
		m[b.Tag] = b
	}
	return m
}

type JointLimit struct {
	BoneId   int64
	UnknownA int64
	Min      mgl32.Vec3
	Max      mgl32.Vec3
}

func (j *JointLimit) Parse(n *Node) error {
	var err error
	if j.BoneId, err = n.ValueInt("BoneId", 0); err != nil {
		return err
	}
	if j.UnknownA, err = n.ValueInt("UnknownA", 0); err != nil {
		return err
	}
	if j.Min, err = n.Vector3("Min"); err != nil {
		return err
	}
	if j.Max, err = n.Vector3("Max"); err != nil {
		return err
	}
	return nil
}

func (j *JointLimit) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "BoneId", j.BoneId)
	AddValueInt(n, "UnknownA", j.UnknownA)
	AddVector3(n, "Min", j.Min)
	AddVector3(n, "Max", j.Max)
	return n
}

type Joints struct {
	RotationLimits    []*JointLimit
	TranslationLimits []*JointLimit
}

func (j *Joints) Parse(n *Node) error {
	parseLimits := func(tag string) ([]*JointLimit, error) {
		ln := n.Child(tag)
		if ln == nil {
			return nil, nil
		}
		var out []*JointLimit
		for _, item := range ln.ChildrenByTag("Item") {
			l := &JointLimit{}
			if err := l.Parse(item); err != nil {
				return nil, err
			}
			out = append(out, l)
		}
		return out, nil
	}
	var err error
	if j.RotationLimits, err = parseLimits("RotationLimits"); err != nil {
		return err
	}
	if j.TranslationLimits, err = parseLimits("TranslationLimits"); err != nil {
		return err
	}
	return nil
}

func (j *Joints) Serialize(tag string) *Node {
	n := NewNode(tag)
	rn := n.Add(NewNode("RotationLimits"))
	for _, l := range j.RotationLimits {
		rn.Add(l.Serialize("Item"))
	}
	tn := n.Add(NewNode("TranslationLimits"))
	for _, l := range j.TranslationLimits {
		tn.Add(l.Serialize("Item"))
	}
	return n
}

func (j *Joints) HasRotationLimit(boneId int64) bool {
	for _, l := range j.RotationLimits {
		if l.BoneId == boneId {
			return true
		}
	}
	return false
}

func (j *Joints) HasTranslationLimit(boneId int64) bool {
	for _, l := range j.TranslationLimits {
		if l.BoneId == boneId {
			return true
		}
	}
	return false
}

type Light struct {
	Position               mgl32.Vec3
	Color                  [4]int64
	Flashiness             int64
	Intensity              float32
	Flags                  int64
	BoneId                 int64
	LightType              string
	GroupId                int64
	TimeFlags              int64
	Falloff                float32
	FalloffExponent        float32
	CullingPlaneNormal     mgl32.Vec3
	CullingPlaneOffset     float32
	Unknown45              int64
	Unknown46              int64
	VolumeIntensity        float32
	VolumeSizeScale        float32
	VolumeOuterColor       [4]int64
	LightHash              int64
	VolumeOuterIntensity   float32
	CoronaSize             float32
	VolumeOuterExponent    float32
	LightFadeDistance      float32
	ShadowFadeDistance     float32
	SpecularFadeDistance   float32
	VolumetricFadeDistance float32
	ShadowNearClip         float32
	CoronaIntensity        float32
	CoronaZBias            float32
	Direction              mgl32.Vec3
	Tangent                mgl32.Vec3
	ConeInnerAngle         float32
	ConeOuterAngle         float32
	Extent                 mgl32.Vec3
	ProjectedTextureHash   string
}

func (l *Light) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	read(func() (e error) { l.Position, e = n.Vector3("Position"); return })
	read(func() (e error) { l.Color, e = n.Color("Colour"); return })
	read(func() (e error) { l.Flashiness, e = n.ValueInt("Flashiness", 0); return })
	read(func() (e error) { l.Intensity, e = n.ValueFloat("Intensity", 0); return })
	read(func() (e error) { l.Flags, e = n.ValueInt("Flags", 0); return })
	read(func() (e error) { l.BoneId, e = n.ValueInt("BoneId", 0); return })
	l.LightType = n.TextOf("Type")
	read(func() (e error) { l.GroupId, e = n.ValueInt("GroupId", 0); return })
	read(func() (e error) { l.TimeFlags, e = n.ValueInt("TimeFlags", 0); return })
	read(func() (e error) { l.Falloff, e = n.ValueFloat("Falloff", 0); return })
	read(func() (e error) { l.FalloffExponent, e = n.ValueFloat("FalloffExponent", 0); return })
	read(func() (e error) { l.CullingPlaneNormal, e = n.Vector3("CullingPlaneNormal"); return })
	read(func() (e error) { l.CullingPlaneOffset, e = n.ValueFloat("CullingPlaneOffset", 0); return })
	read(func() (e error) { l.Unknown45, e = n.ValueInt("Unknown45", 0); return })
	read(func() (e error) { l.Unknown46, e = n.ValueInt("Unknown46", 0); return })
	read(func() (e error) { l.VolumeIntensity, e = n.ValueFloat("VolumeIntensity", 0); return })
	read(func() (e error) { l.VolumeSizeScale, e = n.ValueFloat("VolumeSizeScale", 0); return })
	read(func() (e error) { l.VolumeOuterColor, e = n.Color("VolumeOuterColour"); return })
	read(func() (e error) { l.LightHash, e = n.ValueInt("LightHash", 0); return })
	read(func() (e error) { l.VolumeOuterIntensity, e = n.ValueFloat("VolumeOuterIntensity", 0); return })
	read(func() (e error) { l.CoronaSize, e = n.ValueFloat("CoronaSize", 0); return })
	read(func() (e error) { l.VolumeOuterExponent, e = n.ValueFloat("VolumeOuterExponent", 0); return })
	read(func() (e error) { l.LightFadeDistance, e = n.ValueFloat("LightFadeDistance", 0); return })
	read(func() (e error) { l.ShadowFadeDistance, e = n.ValueFloat("ShadowFadeDistance", 0); return })
	read(func() (e error) { l.SpecularFadeDistance, e = n.ValueFloat("SpecularFadeDistance", 0); return })
	read(func() (e error) { l.VolumetricFadeDistance, e = n.ValueFloat("VolumetricFadeDistance", 0); return })
	read(func() (e error) { l.ShadowNearClip, e = n.ValueFloat("ShadowNearClip", 0); return })
	read(func() (e error) { l.CoronaIntensity, e = n.ValueFloat("CoronaIntensity", 0); return })
	read(func() (e error) { l.CoronaZBias, e = n.ValueFloat("CoronaZBias", 0); return })
	read(func() (e error) { l.Direction, e = n.Vector3("Direction"); return })
	read(func() (e error) { l.Tangent, e = n.Vector3("Tangent"); return })
	read(func() (e error) { l.ConeInnerAngle, e = n.ValueFloat("ConeInnerAngle", 0); return })
	read(func() (e error) { l.ConeOuterAngle, e = n.ValueFloat("ConeOuterAngle", 0); return })
	read(func() (e error) { l.Extent, e = n.Vector3("Extent"); return })
	l.ProjectedTextureHash = n.TextOf("ProjectedTextureHash")
	return err
}

func (l *Light) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddVector3(n, "Position", l.Position)
	AddColor(n, "Colour", l.Color)
	AddValueInt(n, "Flashiness", l.Flashiness)
	AddValueFloat(n, "Intensity", l.Intensity)
	AddValueInt(n, "Flags", l.Flags)
	AddValueInt(n, "BoneId", l.BoneId)
	AddText(n, "Type", l.LightType)
	AddValueInt(n, "GroupId", l.GroupId)
	AddValueInt(n, "TimeFlags", l.TimeFlags)
	AddValueFloat(n, "Falloff", l.Falloff)
	AddValueFloat(n, "FalloffExponent", l.FalloffExponent)
	AddVector3(n, "CullingPlaneNormal", l.CullingPlaneNormal)
	AddValueFloat(n, "CullingPlaneOffset", l.CullingPlaneOffset)
	AddValueInt(n, "Unknown45", l.Unknown45)
	AddValueInt(n, "Unknown46", l.Unknown46)
	AddValueFloat(n, "VolumeIntensity", l.VolumeIntensity)
	AddValueFloat(n, "VolumeSizeScale", l.VolumeSizeScale)
	AddColor(n, "VolumeOuterColour", l.VolumeOuterColor)
	AddValueInt(n, "LightHash", l.LightHash)
	AddValueFloat(n, "VolumeOuterIntensity", l.VolumeOuterIntensity)
	AddValueFloat(n, "CoronaSize", l.CoronaSize)
	AddValueFloat(n, "VolumeOuterExponent", l.VolumeOuterExponent)
	AddValueFloat(n, "LightFadeDistance", l.LightFadeDistance)
	AddValueFloat(n, "ShadowFadeDistance", l.ShadowFadeDistance)
	AddValueFloat(n, "SpecularFadeDistance", l.SpecularFadeDistance)
	AddValueFloat(n, "VolumetricFadeDistance", l.VolumetricFadeDistance)
	AddValueFloat(n, "ShadowNearClip", l.ShadowNearClip)
	AddValueFloat(n, "CoronaIntensity", l.CoronaIntensity)
	AddValueFloat(n, "CoronaZBias", l.CoronaZBias)
	AddVector3(n, "Direction", l.Direction)
	AddVector3(n, "Tangent", l.Tangent)
	AddValueFloat(n, "ConeInnerAngle", l.ConeInnerAngle)
	AddValueFloat(n, "ConeOuterAngle", l.ConeOuterAngle)
	AddVector3(n, "Extent", l.Extent)
	AddText(n, "ProjectedTextureHash", l.ProjectedTextureHash)
	return n
}

type Geometry struct {
	ShaderIndex    int64
	BoundingBoxMin mgl32.Vec3
	BoundingBoxMax mgl32.Vec3
	VertexBuffer   VertexBuffer
	IndexBuffer    IndexBuffer
}

func (g *Geometry) Parse(n *Node) error {
	var err error
	if g.ShaderIndex, err = n.ValueInt("ShaderIndex", 0); err != nil {
		return err
	}
	if g.BoundingBoxMin, err = n.Vector3("BoundingBoxMin"); err != nil {
		return err
	}
	if g.BoundingBoxMax, err = n.Vector3("BoundingBoxMax"); err != nil {
		return err
	}
	if vb := n.Child("VertexBuffer"); vb != nil {
		if err := g.VertexBuffer.Parse(vb); err != nil {
			return err
		}
	}
	if ib := n.Child("IndexBuffer"); ib != nil {
		if err := g.IndexBuffer.Parse(ib); err != nil {
			return err
		}
	}
	return nil
}

func (g *Geometry) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "ShaderIndex", g.ShaderIndex)
	AddVector3(n, "BoundingBoxMin", g.BoundingBoxMin)
	AddVector3(n, "BoundingBoxMax", g.BoundingBoxMax)
	n.Add(g.VertexBuffer.Serialize("VertexBuffer"))
	n.Add(g.IndexBuffer.Serialize("IndexBuffer"))
	return n
}

type DrawableModel struct {
	RenderMask int64
	Flags      int64
	HasSkin    int64
	BoneIndex  int64
	Unknown1   int64
	Geometries []*Geometry
}

func (m *DrawableModel) Parse(n *Node) error {
	var err error
	if m.RenderMask, err = n.ValueInt("RenderMask", 0); err != nil {
		return err
	}
	if m.Flags, err = n.ValueInt("Flags", 0); err != nil {
		return err
	}
	if m.HasSkin, err = n.ValueInt("HasSkin", 0); err != nil {
		return err
	}
	if m.BoneIndex, err = n.ValueInt("BoneIndex", 0); err != nil {
		return err
	}
	if m.Unknown1, err = n.ValueInt("Unknown1", 0); err != nil {
		return err
	}
	if gn := n.Child("Geometries"); gn != nil {
		for _, item := range gn.ChildrenByTag("Item") {
			g := &Geometry{}
			if err := g.Parse(item); err != nil {
				return err
			}
			m.Geometries = append(m.Geometries, g)
		}
	}
	return nil
}

func (m *DrawableModel) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddValueInt(n, "RenderMask", m.RenderMask)
	AddValueInt(n, "Flags", m.Flags)
	AddValueInt(n, "HasSkin", m.HasSkin)
	AddValueInt(n, "BoneIndex", m.BoneIndex)
	AddValueInt(n, "Unknown1", m.Unknown1)
	gn := n.Add(NewNode("Geometries"))
	for _, g := range m.Geometries {
		gn.Add(g.Serialize("Item"))
	}
	return n
}

var modelListTags = [4]string{
	"DrawableModelsHigh",
	"DrawableModelsMedium",
	"DrawableModelsLow",
	"DrawableModelsVeryLow",
}

type Drawable struct {
	Name                 string
	BoundingSphereCenter mgl32.Vec3
	BoundingSphereRadius float32
	BoundingBoxMin       mgl32.Vec3
	BoundingBoxMax       mgl32.Vec3
	LodDistHigh          float32
	LodDistMed           float32
	LodDistLow           float32
	LodDistVlow          float32
	FlagsHigh            int64
	FlagsMed             int64
	FlagsLow             int64
	FlagsVlow            int64
	Unknown9A            int64

	ShaderGroup *ShaderGroup
	Skeleton    *Skeleton
	Joints      *Joints
	// Model lists per LOD tier: high, med, low, vlow.
	Models [4][]*DrawableModel
	Bound  Bound
	Lights []*Light

	// Physics child drawables carry a bone-relative matrix instead of a
	// skeleton.
	Matrix      *Matrix43
	MatrixArray []Matrix43
}

func (d *Drawable) Parse(n *Node) error {
	var err error
	read := func(f func() error) {
		if err == nil {
			err = f()
		}
	}
	d.Name = n.TextOf("Name")
	read(func() (e error) { d.BoundingSphereCenter, e = n.Vector3("BoundingSphereCenter"); return })
	read(func() (e error) { d.BoundingSphereRadius, e = n.ValueFloat("BoundingSphereRadius", 0); return })
	read(func() (e error) { d.BoundingBoxMin, e = n.Vector3("BoundingBoxMin"); return })
	read(func() (e error) { d.BoundingBoxMax, e = n.Vector3("BoundingBoxMax"); return })
	read(func() (e error) { d.LodDistHigh, e = n.ValueFloat("LodDistHigh", 0); return })
	read(func() (e error) { d.LodDistMed, e = n.ValueFloat("LodDistMed", 0); return })
	read(func() (e error) { d.LodDistLow, e = n.ValueFloat("LodDistLow", 0); return })
	read(func() (e error) { d.LodDistVlow, e = n.ValueFloat("LodDistVlow", 0); return })
	read(func() (e error) { d.FlagsHigh, e = n.ValueInt("FlagsHigh", 0); return })
	read(func() (e error) { d.FlagsMed, e = n.ValueInt("FlagsMed", 0); return })
	read(func() (e error) { d.FlagsLow, e = n.ValueInt("FlagsLow", 0); return })
	read(func() (e error) { d.FlagsVlow, e = n.ValueInt("FlagsVlow", 0); return })
	read(func() (e error) { d.Unknown9A, e = n.ValueInt("Unknown9A", 0); return })
	if err != nil {
		return err
	}

	if c := n.Child("Matrix"); c != nil {
		m, err := n.Matrix43Of("Matrix")
		if err != nil {
			return err
		}
		d.Matrix = &m
	}
	if c := n.Child("Matrices"); c != nil {
		for _, item := range c.ChildrenByTag("Item") {
			m, err := parseMatrix43Node(item)
			if err != nil {
				return err
			}
			d.MatrixArray = append(d.MatrixArray, m)
		}
	}

	if sg := n.Child("ShaderGroup"); sg != nil {
		d.ShaderGroup = &ShaderGroup{}
		if err := d.ShaderGroup.Parse(sg); err != nil {
			return err
		}
	}
	if sk := n.Child("Skeleton"); sk != nil {
		d.Skeleton = NewSkeleton()
		if err := d.Skeleton.Parse(sk); err != nil {
			return err
		}
	}
	if jn := n.Child("Joints"); jn != nil {
		d.Joints = &Joints{}
		if err := d.Joints.Parse(jn); err != nil {
			return err
		}
	}
	for i, tag := range modelListTags {
		ln := n.Child(tag)
		if ln == nil {
			continue
		}
		for _, item := range ln.ChildrenByTag("Item") {
			m := &DrawableModel{}
			if err := m.Parse(item); err != nil {
				return err
			}
			d.Models[i] = append(d.Models[i], m)
		}
	}
	if bn := n.Child("Bounds"); bn != nil {
		b, err := ParseBoundNode(bn)
		if err != nil {
			return err
		}
		d.Bound = b
	}
	if ln := n.Child("Lights"); ln != nil {
		for _, item := range ln.ChildrenByTag("Item") {
			l := &Light{}
			if err := l.Parse(item); err != nil {
				return err
			}
			d.Lights = append(d.Lights, l)
		}
	}
	return nil
}

func (d *Drawable) Serialize(tag string) *Node {
	n := NewNode(tag)
	AddText(n, "Name", d.Name)
	AddVector3(n, "BoundingSphereCenter", d.BoundingSphereCenter)
	AddValueFloat(n, "BoundingSphereRadius", d.BoundingSphereRadius)
	AddVector3(n, "BoundingBoxMin", d.BoundingBoxMin)
	AddVector3(n, "BoundingBoxMax", d.BoundingBoxMax)
	AddValueFloat(n, "LodDistHigh", d.LodDistHigh)
	AddValueFloat(n, "LodDistMed", d.LodDistMed)
	AddValueFloat(n, "LodDistLow", d.LodDistLow)
	AddValueFloat(n, "LodDistVlow", d.LodDistVlow)
	AddValueInt(n, "FlagsHigh", d.FlagsHigh)
	AddValueInt(n, "FlagsMed", d.FlagsMed)
	AddValueInt(n, "FlagsLow", d.FlagsLow)
	AddValueInt(n, "FlagsVlow", d.FlagsVlow)
	AddValueInt(n, "Unknown9A", d.Unknown9A)
	if d.Matrix != nil {
		AddMatrix43(n, "Matrix", *d.Matrix)
	}
	if len(d.MatrixArray) != 0 {
		mn := n.Add(NewNode("Matrices"))
		for _, m := range d.MatrixArray {
			AddMatrix43(mn, "Item", m)
		}
	}
	if d.ShaderGroup != nil {
		n.Add(d.ShaderGroup.Serialize("ShaderGroup"))
	}
	if d.Skeleton != nil {
		n.Add(d.Skeleton.Serialize("Skeleton"))
	}
	if d.Joints != nil {
		n.Add(d.Joints.Serialize("Joints"))
	}
	for i, tag := range modelListTags {
		if len(d.Models[i]) == 0 {
			continue
		}
		ln := n.Add(NewNode(tag))
		for _, m := range d.Models[i] {
			ln.Add(m.Serialize("Item"))
		}
	}
	if d.Bound != nil {
		n.Add(d.Bound.Serialize("Bounds"))
	}
	if len(d.Lights) != 0 {
		ln := n.Add(NewNode("Lights"))
		for _, l := range d.Lights {
			ln.Add(l.Serialize("Item"))
		}
	}
	return n
}

// IsEmpty reports whether the drawable has no models at any LOD tier.
func (d *Drawable) IsEmpty() bool {
	for i := range d.Models {
		if len(d.Models[i]) != 0 {
			return false
		}
	}
	return true
}

type DrawableDictionary struct {
	Drawables []*Drawable
}

func (dd *DrawableDictionary) Parse(n *Node) error {
	for _, item := range n.ChildrenByTag("Item") {
		d := &Drawable{}
		if err := d.Parse(item); err != nil {
			return err
		}
		dd.Drawables = append(dd.Drawables, d)
	}
	return nil
}

func (dd *DrawableDictionary) Serialize(tag string) *Node {
	n := NewNode(tag)
	sorted := make([]*Drawable, len(dd.Drawables))
	copy(sorted, dd.Drawables)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for _, d := range sorted {
		n.Add(d.Serialize("Item"))
	}
	return n
}

// ByName finds a dictionary member by drawable name.
func (dd *DrawableDictionary) ByName(name string) *Drawable {
	for _, d := range dd.Drawables {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// FirstSkeleton returns the first non-empty skeleton in the dictionary,
// used as the shared skeleton for members that lack their own.
func (dd *DrawableDictionary) FirstSkeleton() *Skeleton {
	for _, d := range dd.Drawables {
		if d.Skeleton != nil && len(d.Skeleton.Bones) != 0 {
			return d.Skeleton
		}
	}
	return nil
}
