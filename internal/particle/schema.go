package particle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// decoder turns a YAML node tree into a Definition and records every
// problem with its field path instead of stopping at the first one.
type decoder struct {
	errs ValidationErrors
}

func (d *decoder) fail(path, format string, args ...any) {
	d.errs = append(d.errs, &ValidationError{Path: path, Msg: fmt.Sprintf(format, args...)})
}

func (d *decoder) failErr(path string, err error) {
	d.errs = append(d.errs, &ValidationError{Path: path, Msg: err.Error(), Err: err})
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// fields is a checked view of one YAML mapping. A nil *fields answers
// every lookup with the default so that one bad parent does not cascade.
type fields struct {
	d    *decoder
	path string
	keys map[string]*yaml.Node
}

// mapping validates that n is a mapping containing only allowed keys.
func (d *decoder) mapping(n *yaml.Node, path string, allowed ...string) *fields {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		d.fail(path, "expected a mapping")
		return nil
	}
	f := &fields{d: d, path: path, keys: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		if !contains(allowed, key) {
			d.fail(joinPath(path, key), "unknown field (allowed: %s)", strings.Join(allowed, ", "))
			continue
		}
		if _, dup := f.keys[key]; dup {
			d.fail(joinPath(path, key), "duplicate field")
			continue
		}
		f.keys[key] = n.Content[i+1]
	}
	return f
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (f *fields) at(key string) string {
	if f == nil {
		return key
	}
	return joinPath(f.path, key)
}

// lookup returns the value node for key, reporting it as missing when required.
func (f *fields) lookup(key string, required bool) *yaml.Node {
	if f == nil {
		return nil
	}
	n, ok := f.keys[key]
	if !ok {
		if required {
			f.d.fail(f.at(key), "missing required field")
		}
		return nil
	}
	return resolve(n)
}

func (f *fields) has(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f.keys[key]
	return ok
}

func (f *fields) scalar(key string, required bool) (string, bool) {
	n := f.lookup(key, required)
	if n == nil {
		return "", false
	}
	if n.Kind != yaml.ScalarNode {
		f.d.fail(f.at(key), "expected a scalar value")
		return "", false
	}
	return n.Value, true
}

func (f *fields) float(key string, required bool, def float64) float64 {
	s, ok := f.scalar(key, required)
	if !ok {
		return def
	}
	v, err := ParseFloat(s)
	if err != nil {
		f.d.failErr(f.at(key), err)
		return def
	}
	return v
}

func (f *fields) integer(key string, required bool, def int) int {
	s, ok := f.scalar(key, required)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		f.d.fail(f.at(key), "invalid integer %q", s)
		return def
	}
	return v
}

func (f *fields) boolean(key string, def bool) bool {
	n := f.lookup(key, false)
	if n == nil {
		return def
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		f.d.fail(f.at(key), "invalid boolean %q", n.Value)
		return def
	}
	return b
}

func (f *fields) str(key string, required bool, def string) string {
	s, ok := f.scalar(key, required)
	if !ok {
		return def
	}
	return s
}

// vectorText flattens a scalar "x y z" or a sequence [x, y, z] to text.
func (f *fields) vectorText(key string, required bool) (string, bool) {
	n := f.lookup(key, required)
	if n == nil {
		return "", false
	}
	return f.d.vectorText(n, f.at(key))
}

func (d *decoder) vectorText(n *yaml.Node, path string) (string, bool) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, true
	case yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			c = resolve(c)
			if c.Kind != yaml.ScalarNode {
				d.fail(path, "expected a sequence of numbers")
				return "", false
			}
			parts = append(parts, c.Value)
		}
		return strings.Join(parts, " "), true
	}
	d.fail(path, "expected a vector as \"x y z\" or a sequence")
	return "", false
}

func (f *fields) vec3(key string, required bool, def mgl64.Vec3) mgl64.Vec3 {
	s, ok := f.vectorText(key, required)
	if !ok {
		return def
	}
	v, err := ParseVec3(s)
	if err != nil {
		f.d.failErr(f.at(key), err)
		return def
	}
	return v
}

func (f *fields) quat(key string) mgl64.Quat {
	s, ok := f.vectorText(key, false)
	if !ok {
		return mgl64.QuatIdent()
	}
	q, err := ParseQuat(s)
	if err != nil {
		f.d.failErr(f.at(key), err)
	}
	return q
}

// variant reads an externally tagged enum: either a bare tag scalar
// (unit variants) or a one-entry mapping {Tag: body}.
func (d *decoder) variant(n *yaml.Node, path string, units []string, tags ...string) (string, *yaml.Node) {
	n = resolve(n)
	all := append(append([]string(nil), units...), tags...)
	switch {
	case n == nil:
		return "", nil
	case n.Kind == yaml.ScalarNode:
		if contains(units, n.Value) {
			return n.Value, nil
		}
		d.fail(path, "unknown variant %q (expected one of: %s)", n.Value, strings.Join(all, ", "))
	case n.Kind == yaml.MappingNode && len(n.Content) == 2:
		tag := n.Content[0].Value
		if contains(tags, tag) {
			return tag, n.Content[1]
		}
		d.fail(joinPath(path, tag), "unknown variant %q (expected one of: %s)", tag, strings.Join(all, ", "))
	default:
		d.fail(path, "expected a single variant tag (one of: %s)", strings.Join(all, ", "))
	}
	return "", nil
}

// decodeDefinition compiles the document root.
func (d *decoder) decodeDefinition(root *yaml.Node, name string) *Definition {
	def := &Definition{Name: name}
	top := d.mapping(root, "", "name", "bounds", "emitters")
	if top == nil {
		return def
	}
	def.Name = top.str("name", false, name)

	if top.has("bounds") {
		b := d.mapping(top.lookup("bounds", false), "bounds", "center", "extents")
		def.Bounds.Center = b.vec3("center", false, mgl64.Vec3{})
		def.Bounds.Extents = b.vec3("extents", true, mgl64.Vec3{})
		for i, e := range def.Bounds.Extents {
			if e < 0 {
				d.fail("bounds.extents", "component %d must be >= 0, got %g", i, e)
				break
			}
		}
	}

	list := top.lookup("emitters", true)
	if list == nil {
		return def
	}
	if list.Kind != yaml.SequenceNode {
		d.fail("emitters", "expected a sequence of emitters")
		return def
	}
	if len(list.Content) == 0 {
		d.fail("emitters", "at least one emitter is required")
	}

	// 显式栈，避免深层嵌套的子发射器导致递归过深
	type work struct {
		node *yaml.Node
		path string
		out  *Emitter
	}
	stack := make([]work, 0, len(list.Content))
	def.Emitters = make([]*Emitter, len(list.Content))
	for i := len(list.Content) - 1; i >= 0; i-- {
		def.Emitters[i] = &Emitter{}
		stack = append(stack, work{list.Content[i], indexPath("emitters", i), def.Emitters[i]})
	}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		subs := d.decodeEmitter(w.node, w.path, w.out)
		for i := len(subs) - 1; i >= 0; i-- {
			s := subs[i]
			stack = append(stack, work{s.node, s.path, w.out.Sub[s.index].Emitter})
		}
	}
	return def
}

type pendingSub struct {
	index int
	node  *yaml.Node
	path  string
}

// decodeEmitter fills out and returns the nested emitters still to decode.
func (d *decoder) decodeEmitter(n *yaml.Node, path string, out *Emitter) []pendingSub {
	f := d.mapping(n, path, "position", "rotation", "emit", "init", "accel", "display", "sub")
	if f == nil {
		return nil
	}
	out.Position = f.vec3("position", false, mgl64.Vec3{})
	out.Rotation = f.quat("rotation")
	out.Emit = d.decodeEmission(f.lookup("emit", true), f.at("emit"))
	out.Init = d.decodeInit(f.lookup("init", true), f.at("init"))
	if f.has("accel") {
		out.Accel = d.decodeAccel(f.lookup("accel", false), f.at("accel"))
	}
	if f.has("display") {
		out.Display = d.decodeDisplay(f.lookup("display", false), f.at("display"))
	}

	subNode := f.lookup("sub", false)
	if subNode == nil {
		return nil
	}
	subPath := f.at("sub")
	if subNode.Kind != yaml.SequenceNode {
		d.fail(subPath, "expected a sequence of sub-emitters")
		return nil
	}
	pending := make([]pendingSub, 0, len(subNode.Content))
	out.Sub = make([]SubEmitter, len(subNode.Content))
	for i, c := range subNode.Content {
		p := indexPath(subPath, i)
		sf := d.mapping(c, p, "trigger", "emitter")
		out.Sub[i].Emitter = &Emitter{}
		if tag, ok := sf.scalar("trigger", true); ok {
			trig, known := ParseTrigger(tag)
			if !known {
				d.fail(sf.at("trigger"), "unknown trigger %q (expected Start or Stop)", tag)
			}
			out.Sub[i].Trigger = trig
		}
		if en := sf.lookup("emitter", true); en != nil {
			pending = append(pending, pendingSub{index: i, node: en, path: sf.at("emitter")})
		}
	}
	return pending
}

func (d *decoder) decodeEmission(n *yaml.Node, path string) Emission {
	var e Emission
	if n == nil {
		return e
	}
	f := d.mapping(n, path, "max_particles", "particles_per_burst", "burst_interval", "max_bursts", "shape")
	e.MaxParticles = f.integer("max_particles", true, 1)
	if e.MaxParticles < 1 {
		d.fail(f.at("max_particles"), "must be >= 1, got %d", e.MaxParticles)
	}
	e.ParticlesPerBurst = f.integer("particles_per_burst", true, 1)
	if e.ParticlesPerBurst < 1 {
		d.fail(f.at("particles_per_burst"), "must be >= 1, got %d", e.ParticlesPerBurst)
	}
	e.BurstInterval = f.float("burst_interval", true, 0)
	if e.BurstInterval < 0 {
		d.fail(f.at("burst_interval"), "must be >= 0, got %g", e.BurstInterval)
	}
	if f.has("max_bursts") {
		e.MaxBursts = f.integer("max_bursts", false, 0)
		if e.MaxBursts < 1 {
			d.fail(f.at("max_bursts"), "must be >= 1 when present, got %d", e.MaxBursts)
		}
	}
	e.Shape = d.decodeShape(f.lookup("shape", true), f.at("shape"))
	return e
}

func (d *decoder) decodeShape(n *yaml.Node, path string) Shape {
	if n == nil {
		return PointShape{}
	}
	tag, body := d.variant(n, path, nil, "Point", "Box", "Sphere", "Ring")
	p := joinPath(path, tag)
	switch tag {
	case "Point":
		f := d.mapping(body, p, "origin")
		return PointShape{Origin: f.vec3("origin", false, mgl64.Vec3{})}
	case "Box":
		f := d.mapping(body, p, "origin", "extents")
		s := BoxShape{
			Origin:  f.vec3("origin", false, mgl64.Vec3{}),
			Extents: f.vec3("extents", true, mgl64.Vec3{}),
		}
		for i, e := range s.Extents {
			if e < 0 {
				d.fail(f.at("extents"), "component %d must be >= 0, got %g", i, e)
				break
			}
		}
		return s
	case "Sphere":
		f := d.mapping(body, p, "origin", "inner_radius", "outer_radius")
		s := SphereShape{
			Origin:      f.vec3("origin", false, mgl64.Vec3{}),
			InnerRadius: f.float("inner_radius", false, 0),
			OuterRadius: f.float("outer_radius", true, 0),
		}
		d.checkRadii(f, s.InnerRadius, s.OuterRadius)
		return s
	case "Ring":
		f := d.mapping(body, p, "origin", "axis", "inner_radius", "outer_radius")
		s := RingShape{
			Origin:      f.vec3("origin", false, mgl64.Vec3{}),
			Axis:        f.vec3("axis", false, mgl64.Vec3{0, 0, 1}),
			InnerRadius: f.float("inner_radius", false, 0),
			OuterRadius: f.float("outer_radius", true, 0),
		}
		if s.Axis.Len() == 0 {
			d.fail(f.at("axis"), "must be non-zero")
			s.Axis = mgl64.Vec3{0, 0, 1}
		}
		d.checkRadii(f, s.InnerRadius, s.OuterRadius)
		return s
	}
	return PointShape{}
}

func (d *decoder) checkRadii(f *fields, inner, outer float64) {
	if inner < 0 {
		d.fail(f.at("inner_radius"), "must be >= 0, got %g", inner)
	}
	if outer < 0 {
		d.fail(f.at("outer_radius"), "must be >= 0, got %g", outer)
	}
	if inner > outer {
		d.fail(f.at("inner_radius"), "inner_radius %g exceeds outer_radius %g", inner, outer)
	}
}

// rangeOf reads key_min/key_max, both defaulting to def.
func (d *decoder) rangeOf(f *fields, key string, required bool, def float64) Range {
	r := Range{
		Min: f.float(key+"_min", required, def),
		Max: f.float(key+"_max", required, def),
	}
	if r.Min > r.Max {
		d.fail(f.at(key+"_min"), "%s_min %g exceeds %s_max %g", key, r.Min, key, r.Max)
	}
	return r
}

func (d *decoder) spread(f *fields, key string) float64 {
	deg := f.float(key, false, 0)
	if deg < 0 || deg > 180 {
		d.fail(f.at(key), "must be within [0,180] degrees, got %g", deg)
	}
	return mgl64.DegToRad(deg)
}

func (d *decoder) decodeInit(n *yaml.Node, path string) Init {
	in := Init{
		AngleAxis: mgl64.Vec3{0, 0, 1},
		Scale:     Range{1, 1},
	}
	if n == nil {
		return in
	}
	f := d.mapping(n, path,
		"lifetime_min", "lifetime_max",
		"angle_min", "angle_max", "angle_axis", "angle_axis_spread",
		"direction", "direction_spread",
		"velocity_min", "velocity_max",
		"angular_velocity_min", "angular_velocity_max",
		"scale_min", "scale_max")

	in.Lifetime = d.rangeOf(f, "lifetime", true, 1)
	if in.Lifetime.Min <= 0 {
		d.fail(f.at("lifetime_min"), "must be > 0, got %g", in.Lifetime.Min)
	}
	angle := d.rangeOf(f, "angle", false, 0)
	in.Angle = Range{mgl64.DegToRad(angle.Min), mgl64.DegToRad(angle.Max)}
	in.AngleAxis = f.vec3("angle_axis", false, mgl64.Vec3{0, 0, 1})
	if in.AngleAxis.Len() == 0 {
		d.fail(f.at("angle_axis"), "must be non-zero")
		in.AngleAxis = mgl64.Vec3{0, 0, 1}
	}
	in.AngleAxisSpread = d.spread(f, "angle_axis_spread")
	in.Direction = f.vec3("direction", false, mgl64.Vec3{})
	in.DirectionSpread = d.spread(f, "direction_spread")
	in.Velocity = d.rangeOf(f, "velocity", false, 0)
	av := d.rangeOf(f, "angular_velocity", false, 0)
	in.AngularVelocity = Range{mgl64.DegToRad(av.Min), mgl64.DegToRad(av.Max)}
	in.Scale = d.rangeOf(f, "scale", false, 1)
	if in.Scale.Min < 0 {
		d.fail(f.at("scale_min"), "must be >= 0, got %g", in.Scale.Min)
	}
	return in
}

func (d *decoder) decodeAccel(n *yaml.Node, path string) Acceleration {
	var a Acceleration
	f := d.mapping(n, path, "gravity", "linear_damp", "angular_damp", "radial_accel", "orbit_accel", "orbit_axis", "noise")
	if f == nil {
		return a
	}
	a.Gravity = f.vec3("gravity", false, mgl64.Vec3{})
	a.LinearDamp = f.float("linear_damp", false, 0)
	if a.LinearDamp < 0 {
		d.fail(f.at("linear_damp"), "must be >= 0, got %g", a.LinearDamp)
	}
	a.AngularDamp = f.float("angular_damp", false, 0)
	if a.AngularDamp < 0 {
		d.fail(f.at("angular_damp"), "must be >= 0, got %g", a.AngularDamp)
	}
	a.RadialAccel = f.float("radial_accel", false, 0)
	a.OrbitAccel = f.float("orbit_accel", false, 0)
	a.OrbitAxis = f.vec3("orbit_axis", false, mgl64.Vec3{0, 0, 1})
	if a.OrbitAccel != 0 && a.OrbitAxis.Len() == 0 {
		d.fail(f.at("orbit_axis"), "must be non-zero when orbit_accel is set")
	}

	if f.has("noise") {
		nf := d.mapping(f.lookup("noise", false), f.at("noise"), "seed", "frequency", "force")
		seed := nf.integer("seed", false, 0)
		if seed < 0 || seed > 0xFFFFFFFF {
			d.fail(nf.at("seed"), "must fit in an unsigned 32-bit integer, got %d", seed)
		}
		a.Noise = &Noise{
			Seed:      uint32(seed),
			Frequency: nf.float("frequency", true, 1),
			Force:     nf.float("force", true, 0),
		}
		if a.Noise.Frequency < 0 {
			d.fail(nf.at("frequency"), "must be >= 0, got %g", a.Noise.Frequency)
		}
	}
	return a
}

func (d *decoder) decodeDisplay(n *yaml.Node, path string) *Sprite {
	tag, body := d.variant(n, path, []string{"None"}, "Sprite")
	if tag != "Sprite" {
		return nil
	}
	p := joinPath(path, tag)
	f := d.mapping(body, p, "material", "billboard", "sheet", "size", "color")
	s := &Sprite{
		Material:  f.str("material", true, ""),
		Billboard: BillboardFaceCamera,
		Size:      ConstantCurve(mgl64.Vec2{1, 1}),
		Color:     ConstantCurve(mgl64.Vec4{1, 1, 1, 1}),
	}
	if tag, ok := f.scalar("billboard", false); ok {
		mode, known := ParseBillboardMode(tag)
		if !known {
			d.fail(f.at("billboard"), "unknown billboard mode %q (expected one of: None, FaceCamera, AlignVertical, AlignVelocity)", tag)
		}
		s.Billboard = mode
	}
	if f.has("sheet") {
		sf := d.mapping(f.lookup("sheet", false), f.at("sheet"), "rows", "columns", "random_start", "timescale")
		sheet := &SpriteSheet{
			Rows:        sf.integer("rows", true, 1),
			Columns:     sf.integer("columns", true, 1),
			RandomStart: sf.boolean("random_start", false),
			Timescale:   sf.float("timescale", false, 1),
		}
		if sheet.Rows < 1 {
			d.fail(sf.at("rows"), "must be >= 1, got %d", sheet.Rows)
		}
		if sheet.Columns < 1 {
			d.fail(sf.at("columns"), "must be >= 1, got %d", sheet.Columns)
		}
		if sheet.Timescale < 0 {
			d.fail(sf.at("timescale"), "must be >= 0, got %g", sheet.Timescale)
		}
		s.Sheet = sheet
	}

	if c := decodeCurve(d, f, "size", parseSize, LerpVec2); c != nil {
		s.Size = c
	}
	if c := decodeCurve(d, f, "color", ParseColor, LerpVec4); c != nil {
		s.Color = c
	}
	return s
}

// parseSize accepts "w h" or a single uniform "s".
func parseSize(s string) (mgl64.Vec2, error) {
	if v, err := ParseVector(s, 1); err == nil {
		return mgl64.Vec2{v[0], v[0]}, nil
	}
	return ParseVec2(s)
}

// decodeCurve reads either a bare key list or {mode, keys}.
func decodeCurve[T any](d *decoder, f *fields, key string, parse func(string) (T, error), lerp LerpFunc[T]) *Curve[T] {
	n := f.lookup(key, true)
	if n == nil {
		return nil
	}
	path := f.at(key)
	mode := InterpLinear
	keysNode, keysPath := n, path
	if n.Kind == yaml.MappingNode {
		cf := d.mapping(n, path, "mode", "keys")
		if tag, ok := cf.scalar("mode", false); ok {
			m, known := ParseInterpolation(tag)
			if !known {
				d.fail(cf.at("mode"), "unknown interpolation %q (expected Linear or Step)", tag)
			}
			mode = m
		}
		keysNode = cf.lookup("keys", true)
		keysPath = cf.at("keys")
		if keysNode == nil {
			return nil
		}
	}
	if keysNode.Kind != yaml.SequenceNode {
		d.fail(keysPath, "expected a sequence of keyframes")
		return nil
	}

	keys := make([]Key[T], 0, len(keysNode.Content))
	bad := false
	for i, kn := range keysNode.Content {
		kp := indexPath(keysPath, i)
		kf := d.mapping(kn, kp, "time", "value")
		if kf == nil {
			bad = true
			continue
		}
		k := Key[T]{Time: kf.float("time", true, 0)}
		if k.Time < 0 || k.Time > 1 {
			d.fail(kf.at("time"), "must be within [0,1], got %g", k.Time)
			bad = true
		}
		text, ok := kf.vectorText("value", true)
		if !ok {
			bad = true
			continue
		}
		v, err := parse(text)
		if err != nil {
			d.failErr(kf.at("value"), err)
			bad = true
			continue
		}
		k.Value = v
		keys = append(keys, k)
	}
	if bad {
		return nil
	}
	c, err := NewCurve(keys, mode, lerp)
	if err != nil {
		d.failErr(keysPath, err)
		return nil
	}
	return c
}
