// Package ydr bridges drawable documents (.ydr.xml) and the scene
// graph. The fragment and dictionary packages reuse its conversions.
package ydr

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/arifsezeraktas/Sollumz/asset"
	"github.com/arifsezeraktas/Sollumz/asset/ybn"
	"github.com/arifsezeraktas/Sollumz/config"
	"github.com/arifsezeraktas/Sollumz/cwxml"
	"github.com/arifsezeraktas/Sollumz/scene"
	"github.com/arifsezeraktas/Sollumz/status"
	"github.com/arifsezeraktas/Sollumz/utils"
)

const Extension = ".ydr.xml"

// Distance written for every populated LOD tier; what shipped assets
// carry for "never switch".
const DefaultLodDist = 9998

type handler struct{}

func init() {
	asset.SetHandler(Extension, handler{})
}

func BaseName(path string) string {
	name := filepath.Base(path)
	for {
		ext := filepath.Ext(name)
		if ext == "" {
			return name
		}
		name = strings.TrimSuffix(name, ext)
	}
}

func (handler) LoadRaw(path string, s *config.Settings) (*cwxml.Node, error) {
	return asset.ReadDocumentFile(path, s)
}

func (h handler) Load(path string, s *config.Settings) (*scene.Node, error) {
	root, err := h.LoadRaw(path, s)
	if err != nil {
		return nil, err
	}
	var d cwxml.Drawable
	if err := d.Parse(root); err != nil {
		return nil, err
	}
	return DrawableToNode(&d, BaseName(path))
}

func (handler) Save(root *scene.Node, path string, s *config.Settings) error {
	d, err := NodeToDrawable(root, BaseName(path))
	if err != nil {
		return err
	}
	return asset.WriteDocumentFile(path, d.Serialize("Drawable"))
}

// MaterialsFromShaderGroup flattens the shader list into scene
// materials, one per shader, in shader index order.
func MaterialsFromShaderGroup(sg *cwxml.ShaderGroup) []*scene.Material {
	if sg == nil {
		return nil
	}
	mats := make([]*scene.Material, 0, len(sg.Shaders))
	for i, sh := range sg.Shaders {
		m := scene.NewMaterial(fmt.Sprintf("%s.%03d", sh.Name, i))
		m.ShaderName = sh.Name
		m.ShaderFile = sh.FileName
		m.RenderBucket = sh.RenderBucket
		for _, p := range sh.Parameters {
			switch v := p.(type) {
			case *cwxml.TextureShaderParameter:
				m.Textures[v.Name] = v.TextureName
			case *cwxml.VectorShaderParameter:
				m.Vectors[v.Name] = v.Value
			case *cwxml.ArrayShaderParameter:
				m.Arrays[v.Name] = v.Values
			}
		}
		mats = append(mats, m)
	}
	return mats
}

// ShaderGroupFromMaterials is the inverse; parameter order is texture,
// vector, array, names sorted inside each kind for stable output.
func ShaderGroupFromMaterials(mats []*scene.Material) *cwxml.ShaderGroup {
	sg := &cwxml.ShaderGroup{}
	for _, m := range mats {
		name := m.ShaderName
		if name == "" {
			name = utils.RandomName()
		}
		sh := &cwxml.Shader{
			Name:         name,
			FileName:     m.ShaderFile,
			RenderBucket: m.RenderBucket,
		}
		for _, pname := range utils.SortedKeys(m.Textures) {
			sh.Parameters = append(sh.Parameters, &cwxml.TextureShaderParameter{
				Name: pname, TextureName: m.Textures[pname]})
		}
		for _, pname := range utils.SortedKeysVec(m.Vectors) {
			sh.Parameters = append(sh.Parameters, &cwxml.VectorShaderParameter{
				Name: pname, Value: m.Vectors[pname]})
		}
		for _, pname := range utils.SortedKeysArr(m.Arrays) {
			sh.Parameters = append(sh.Parameters, &cwxml.ArrayShaderParameter{
				Name: pname, Values: m.Arrays[pname]})
		}
		sg.Shaders = append(sg.Shaders, sh)
	}
	return sg
}

// ArmatureFromSkeleton converts bones and precomputes their world
// chain transforms.
func ArmatureFromSkeleton(sk *cwxml.Skeleton) *scene.Armature {
	if sk == nil || len(sk.Bones) == 0 {
		return nil
	}
	arm := &scene.Armature{}
	worlds := make([]mgl32.Mat4, len(sk.Bones))
	for i, b := range sk.Bones {
		local := b.LocalTransform()
		parent := int(b.ParentIndex)
		world := local
		if parent >= 0 && parent < i {
			world = worlds[parent].Mul4(local)
		}
		worlds[i] = world
		scale := b.Scale
		if scale == (mgl32.Vec3{}) {
			scale = mgl32.Vec3{1, 1, 1}
		}
		arm.Bones = append(arm.Bones, &scene.Bone{
			Name:        b.Name,
			Tag:         b.Tag,
			ParentIndex: parent,
			Flags:       b.Flags,
			Translation: b.Translation,
			Rotation:    b.RotationQuat(),
			Scale:       scale,
			World:       world,
		})
	}
	return arm
}

func SkeletonFromArmature(arm *scene.Armature) *cwxml.Skeleton {
	if arm == nil || len(arm.Bones) == 0 {
		return nil
	}
	sk := cwxml.NewSkeleton()
	for i, b := range arm.Bones {
		sk.Bones = append(sk.Bones, &cwxml.Bone{
			Name:         b.Name,
			Tag:          b.Tag,
			Index:        int64(i),
			ParentIndex:  int64(b.ParentIndex),
			SiblingIndex: -1,
			Flags:        b.Flags,
			Translation:  b.Translation,
			Rotation:     mgl32.Vec4{b.Rotation.V[0], b.Rotation.V[1], b.Rotation.V[2], b.Rotation.W},
			Scale:        b.Scale,
			TransformUnk: mgl32.Vec4{0, 4, -3, 0},
		})
	}
	return sk
}

// JointsFromArmature rebuilds the joint limit lists from bone flags;
// the tunable limit values themselves are not authored scene-side.
func JointsFromArmature(arm *scene.Armature) *cwxml.Joints {
	if arm == nil {
		return nil
	}
	j := &cwxml.Joints{}
	for _, b := range arm.Bones {
		if hasFlag(b.Flags, "LimitRotation") {
			j.RotationLimits = append(j.RotationLimits, &cwxml.JointLimit{BoneId: b.Tag})
		}
		if hasFlag(b.Flags, "LimitTranslation") {
			j.TranslationLimits = append(j.TranslationLimits, &cwxml.JointLimit{BoneId: b.Tag})
		}
	}
	if len(j.RotationLimits) == 0 && len(j.TranslationLimits) == 0 {
		return nil
	}
	return j
}

func hasFlag(flags []string, name string) bool {
	for _, f := range flags {
		if f == name {
			return true
		}
	}
	return false
}

func lightToScene(l *cwxml.Light) *scene.Light {
	return &scene.Light{
		Type:      l.LightType,
		Color:     [4]uint8{uint8(l.Color[0]), uint8(l.Color[1]), uint8(l.Color[2]), uint8(l.Color[3])},
		Intensity: l.Intensity,
		Falloff:   l.Falloff,
		ConeInner: l.ConeInnerAngle,
		ConeOuter: l.ConeOuterAngle,
		Direction: l.Direction,
		BoneTag:   l.BoneId,
	}
}

func lightFromScene(l *scene.Light, pos mgl32.Vec3) *cwxml.Light {
	return &cwxml.Light{
		Position:       pos,
		Color:          [4]int64{int64(l.Color[0]), int64(l.Color[1]), int64(l.Color[2]), int64(l.Color[3])},
		Intensity:      l.Intensity,
		LightType:      l.Type,
		Falloff:        l.Falloff,
		ConeInnerAngle: l.ConeInner,
		ConeOuterAngle: l.ConeOuter,
		Direction:      l.Direction,
		BoneId:         l.BoneTag,
	}
}

// DrawableToNode expands a drawable into a scene subtree: one child
// node per geometry, collision subtree, light nodes, armature and
// material table on the root.
func DrawableToNode(d *cwxml.Drawable, name string) (*scene.Node, error) {
	if d.Name != "" {
		name = d.Name
	}
	root := scene.NewNode(name)
	root.Materials = MaterialsFromShaderGroup(d.ShaderGroup)
	root.Armature = ArmatureFromSkeleton(d.Skeleton)

	for tier := range d.Models {
		for mi, model := range d.Models[tier] {
			for gi, geom := range model.Geometries {
				mesh, err := MeshFromGeometry(geom)
				if err != nil {
					return nil, err
				}
				if geom.ShaderIndex >= 0 && int(geom.ShaderIndex) < len(root.Materials) {
					mesh.Material = root.Materials[geom.ShaderIndex]
				} else if len(root.Materials) != 0 {
					status.Warning("%s: geometry references shader %d of %d, skipping material",
						name, geom.ShaderIndex, len(root.Materials))
				}
				child := root.AddChild(scene.NewNode(fmt.Sprintf("%s.%d.%d", name, mi, gi)))
				child.Lod = tier
				child.Mesh = mesh
			}
		}
	}
	if d.Bound != nil {
		root.AddChild(ybn.BoundToNode(d.Bound, name+".col"))
	}
	for _, l := range d.Lights {
		ln := root.AddChild(scene.NewNode(name + ".light"))
		ln.Transform = mgl32.Translate3D(l.Position[0], l.Position[1], l.Position[2])
		ln.Light = lightToScene(l)
	}
	return root, nil
}

// NodeToDrawable collapses a scene subtree back into a drawable.
// Bounding volumes and per-tier flags are derived, never authored.
func NodeToDrawable(root *scene.Node, name string) (*cwxml.Drawable, error) {
	if root.Name != "" {
		name = root.Name
	}
	d := &cwxml.Drawable{Name: name}
	d.ShaderGroup = ShaderGroupFromMaterials(root.Materials)
	d.Skeleton = SkeletonFromArmature(root.Armature)
	d.Joints = JointsFromArmature(root.Armature)

	matIndex := make(map[*scene.Material]int64, len(root.Materials))
	for i, m := range root.Materials {
		matIndex[m] = int64(i)
	}

	var min, max mgl32.Vec3
	first := true
	for _, child := range root.Children {
		if child.Mesh == nil || child.Bound != nil {
			continue
		}
		layoutType := "GTAV1"
		if len(child.Mesh.Tangents) != 0 {
			layoutType = "GTAV2"
		}
		geom := GeometryFromMesh(child.Mesh, matIndex[child.Mesh.Material], layoutType)
		model := &cwxml.DrawableModel{RenderMask: 255}
		if len(child.Mesh.BlendWeights) != 0 {
			model.HasSkin = 1
		}
		model.Geometries = append(model.Geometries, geom)
		tier := child.Lod
		if tier < 0 || tier >= len(d.Models) {
			tier = 0
		}
		d.Models[tier] = append(d.Models[tier], model)

		for _, v := range child.Mesh.Positions {
			if first {
				min, max, first = v, v, false
				continue
			}
			for i := 0; i < 3; i++ {
				if v[i] < min[i] {
					min[i] = v[i]
				}
				if v[i] > max[i] {
					max[i] = v[i]
				}
			}
		}
	}
	if !first {
		d.BoundingBoxMin, d.BoundingBoxMax = min, max
		center := min.Add(max).Mul(0.5)
		d.BoundingSphereCenter = center
		d.BoundingSphereRadius = max.Sub(center).Len()
	}
	lodDists := [4]*float32{&d.LodDistHigh, &d.LodDistMed, &d.LodDistLow, &d.LodDistVlow}
	lodFlags := [4]*int64{&d.FlagsHigh, &d.FlagsMed, &d.FlagsLow, &d.FlagsVlow}
	for tier := range d.Models {
		if len(d.Models[tier]) != 0 {
			*lodDists[tier] = DefaultLodDist
			*lodFlags[tier] = int64(len(d.Models[tier]))
		}
	}

	for _, child := range root.Children {
		if child.Bound != nil {
			b, err := ybn.NodeToBound(child)
			if err != nil {
				return nil, err
			}
			d.Bound = b
		}
		if child.Light != nil {
			pos := child.Transform.Col(3).Vec3()
			d.Lights = append(d.Lights, lightFromScene(child.Light, pos))
		}
	}
	return d, nil
}
