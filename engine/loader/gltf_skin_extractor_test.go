package loader

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skinnedGLB(skins string) []byte {
	var bin binBuilder
	posOff, posLen := bin.write([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	ibm := mgl32.Translate3D(1, 2, 3)
	ident := mgl32.Ident4()
	ibmOff, ibmLen := bin.write(append(ibm[:], ident[:]...))
	data := bin.Bytes()

	doc := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d}],
		"bufferViews": [
			{"buffer": 0, "byteOffset": %d, "byteLength": %d},
			{"buffer": 0, "byteOffset": %d, "byteLength": %d}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5126, "count": 2, "type": "MAT4"}
		],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}, {"primitives": [{"attributes": {"POSITION": 0}}]}],
		"nodes": [
			{"name": "hip", "children": [1]},
			{"name": "knee"},
			{"name": "body", "mesh": 0, "skin": 0},
			{"name": "shadow", "mesh": 1, "skin": 1}
		],
		"skins": %s
	}`, len(data), posOff, posLen, ibmOff, ibmLen, skins)
	return encodeGLB(doc, data)
}

func TestSkinsShareBoneNames(t *testing.T) {
	bundle, err := importGLB(t, skinnedGLB(`[
		{"joints": [0, 1], "inverseBindMatrices": 1},
		{"joints": [0, 1]},
		{"joints": [1, 0]}
	]`), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, bundle.Skins, 3)

	assert.Same(t, bundle.Skins[0], bundle.Skins[1])
	assert.NotSame(t, bundle.Skins[0], bundle.Skins[2])

	skin := bundle.Skins[0]
	assert.Equal(t, []string{"hip", "knee"}, skin.BoneNames)
	require.Len(t, skin.InverseBindMatrices, 2)
	assert.Equal(t, mgl32.Translate3D(1, 2, 3), skin.InverseBindMatrices[0])
	assert.Equal(t, mgl32.Ident4(), skin.InverseBindMatrices[1])

	assert.Equal(t, []string{"knee", "hip"}, bundle.Skins[2].BoneNames)
	assert.Equal(t, mgl32.Ident4(), bundle.Skins[2].InverseBindMatrices[0], "missing matrices default to identity")

	assert.Same(t, skin, bundle.Meshes[0][0].Skin)
	assert.Same(t, skin, bundle.Meshes[1][0].Skin)
}

func TestSkinRejectsMissingJoint(t *testing.T) {
	_, err := importGLB(t, skinnedGLB(`[{"joints": [9]}, {"joints": [0]}]`), DefaultConfig())
	assert.ErrorIs(t, err, errIndexOutOfRange)
}
