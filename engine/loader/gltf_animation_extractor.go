package loader

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/charmbracelet/log"
)

// graphComponent is the component every node curve targets.
const graphComponent = "graph"

// gltfTransformPaths maps channel paths to node properties.
var gltfTransformPaths = map[string]string{
	gltfAnimPathTranslation: "localPosition",
	gltfAnimPathRotation:    "localRotation",
	gltfAnimPathScale:       "localScale",
}

// gltfInterpolations maps sampler interpolation names; anything else is linear.
var gltfInterpolations = map[string]model.Interpolation{
	"STEP":        model.InterpolationStep,
	"LINEAR":      model.InterpolationLinear,
	"CUBICSPLINE": model.InterpolationCubic,
}

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	doc    *gltfDocument
	reader accessorReader
	bundle *model.ResourceBundle
	logger *log.Logger
}

// gltfAnimationExtractor converts glTF animations into animation tracks targeting nodes by name path.
// Animations must be extracted after the node arena exists.
type gltfAnimationExtractor interface {
	// ExtractAnimation builds one track. Weight channels are split into one curve per morph target.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *model.AnimTrack: the track
	//   - error: error if a sampler accessor cannot be read
	ExtractAnimation(animIndex int) (*model.AnimTrack, error)

	// ExtractAllAnimations builds every animation of the document.
	//
	// Returns:
	//   - []*model.AnimTrack: all tracks
	//   - error: the first failure
	ExtractAllAnimations() ([]*model.AnimTrack, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates an animation extractor.
//
// Parameters:
//   - doc: the document
//   - reader: the accessor reader
//   - bundle: the bundle whose nodes the curves target
//   - logger: the load logger
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(doc *gltfDocument, reader accessorReader, bundle *model.ResourceBundle, logger *log.Logger) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{doc: doc, reader: reader, bundle: bundle, logger: logger}
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*model.AnimTrack, error) {
	tracks := make([]*model.AnimTrack, len(e.doc.Animations))
	for i := range e.doc.Animations {
		track, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		tracks[i] = track
	}
	return tracks, nil
}

// pendingCurve is a curve whose input and output still reference accessor indices (or split outputs).
type pendingCurve struct {
	paths         []model.AnimTarget
	input         int
	output        int
	interpolation model.Interpolation

	// split is set on weight curves replaced by per-target curves.
	split bool
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*model.AnimTrack, error) {
	if animIndex < 0 || animIndex >= len(e.doc.Animations) {
		return nil, fmt.Errorf("animation %d: %w", animIndex, errIndexOutOfRange)
	}
	ga := &e.doc.Animations[animIndex]

	inputs := make(map[int]*model.AnimData)
	outputs := make(map[int]*model.AnimData)
	curves := make([]*pendingCurve, len(ga.Samplers))

	for i, s := range ga.Samplers {
		for _, ref := range []struct {
			idx  int
			into map[int]*model.AnimData
		}{{s.Input, inputs}, {s.Output, outputs}} {
			if _, ok := ref.into[ref.idx]; ok {
				continue
			}
			data, err := e.animData(ref.idx)
			if err != nil {
				return nil, fmt.Errorf("sampler %d: %w", i, err)
			}
			ref.into[ref.idx] = data
		}

		interpolation, ok := gltfInterpolations[s.Interpolation]
		if !ok {
			interpolation = model.InterpolationLinear
		}
		curves[i] = &pendingCurve{input: s.Input, output: s.Output, interpolation: interpolation}
	}

	// split outputs get keys below every accessor index
	var (
		morphCurves  []*pendingCurve
		splitOutputs []*model.AnimData
	)

	for c, ch := range ga.Channels {
		if ch.Sampler < 0 || ch.Sampler >= len(curves) {
			return nil, fmt.Errorf("channel %d: sampler %d: %w", c, ch.Sampler, errIndexOutOfRange)
		}
		if ch.Target.Node == nil || e.bundle.Node(*ch.Target.Node) == nil {
			e.logger.Debug("skipping animation channel without node", "animation", animIndex, "channel", c)
			continue
		}
		curve := curves[ch.Sampler]
		node := *ch.Target.Node
		entityPath := e.bundle.NodePath(node)

		if ch.Target.Path == gltfAnimPathWeights {
			split := e.splitWeights(curve, inputs[curve.input], outputs[curve.output], node, entityPath)
			for _, sc := range split {
				splitOutputs = append(splitOutputs, sc.data)
				sc.curve.output = -len(splitOutputs)
				morphCurves = append(morphCurves, sc.curve)
			}
			curve.split = true
			continue
		}

		property, ok := gltfTransformPaths[ch.Target.Path]
		if !ok {
			e.logger.Debug("skipping animation channel with unknown path", "path", ch.Target.Path)
			continue
		}
		curve.paths = append(curve.paths, model.AnimTarget{
			EntityPath:   entityPath,
			Component:    graphComponent,
			PropertyPath: []string{property},
		})
	}

	track := &model.AnimTrack{Name: ga.Name}
	if track.Name == "" {
		track.Name = "animation_" + strconv.Itoa(animIndex)
	}

	inputIndex := make(map[int]int, len(inputs))
	for _, key := range slices.Sorted(maps.Keys(inputs)) {
		inputIndex[key] = len(track.Inputs)
		track.Inputs = append(track.Inputs, inputs[key])
	}
	outputIndex := make(map[int]int, len(outputs)+len(splitOutputs))
	for _, key := range slices.Sorted(maps.Keys(outputs)) {
		outputIndex[key] = len(track.Outputs)
		track.Outputs = append(track.Outputs, outputs[key])
	}
	for i, data := range splitOutputs {
		outputIndex[-(i + 1)] = len(track.Outputs)
		track.Outputs = append(track.Outputs, data)
	}

	rotations := make(map[int]bool)
	for _, pc := range append(curves, morphCurves...) {
		if pc.split {
			continue
		}
		curve := &model.AnimCurve{
			Paths:         pc.paths,
			Input:         inputIndex[pc.input],
			Output:        outputIndex[pc.output],
			Interpolation: pc.interpolation,
		}
		track.Curves = append(track.Curves, curve)
		if len(pc.paths) > 0 && pc.paths[0].PropertyPath[0] == "localRotation" && pc.interpolation != model.InterpolationCubic {
			rotations[curve.Output] = true
		}
	}

	for out := range rotations {
		if data := track.Outputs[out]; data.Components == 4 {
			common.FixQuaternionContinuity(data.Data)
		}
	}

	for _, in := range track.Inputs {
		if n := len(in.Data); n > 0 {
			track.Duration = max(track.Duration, in.Data[n-1])
		}
	}
	return track, nil
}

// splitCurve is one per-target weight curve and its de-interleaved output.
type splitCurve struct {
	curve *pendingCurve
	data  *model.AnimData
}

// splitWeights de-interleaves a weights output into one scalar output per morph target.
func (e *gltfAnimationExtractorImpl) splitWeights(curve *pendingCurve, in, out *model.AnimData, node int, entityPath []string) []splitCurve {
	if in == nil || out == nil || len(in.Data) == 0 || len(out.Data) == 0 {
		e.logger.Warn("no output data for morph target curve, skipping", "path", entityPath)
		return nil
	}

	var names []string
	if gn := &e.doc.Nodes[node]; gn.Mesh != nil && *gn.Mesh >= 0 && *gn.Mesh < len(e.doc.Meshes) {
		names = e.doc.Meshes[*gn.Mesh].targetNames()
	}

	targets := len(out.Data) / len(in.Data)
	keys := len(out.Data) / max(targets, 1)
	result := make([]splitCurve, 0, targets)
	for j := 0; j < targets; j++ {
		values := make([]float32, keys)
		for k := range values {
			values[k] = out.Data[k*targets+j]
		}
		property := "weight." + strconv.Itoa(j)
		if j < len(names) && names[j] != "" {
			property = "weight.name." + names[j]
		}
		result = append(result, splitCurve{
			curve: &pendingCurve{
				paths: []model.AnimTarget{{
					EntityPath:   entityPath,
					Component:    graphComponent,
					PropertyPath: []string{property},
				}},
				input:         curve.input,
				interpolation: curve.interpolation,
			},
			data: &model.AnimData{Components: 1, Data: values},
		})
	}
	return result
}

// animData reads an accessor as animation keys.
func (e *gltfAnimationExtractorImpl) animData(idx int) (*model.AnimData, error) {
	acc, err := e.reader.Accessor(idx)
	if err != nil {
		return nil, err
	}
	values, err := e.reader.Float32(idx)
	if err != nil {
		return nil, err
	}
	return &model.AnimData{Components: numComponents(acc.Type), Data: values}, nil
}
