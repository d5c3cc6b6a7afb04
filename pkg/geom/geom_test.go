package geom

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTol = 1e-9

func randomVec(rnd *rand.Rand, scale float64) v3.Vec {
	return Vec((rnd.Float64()*2-1)*scale, (rnd.Float64()*2-1)*scale, (rnd.Float64()*2-1)*scale)
}

func randomTransform(rnd *rand.Rand) RigidTransform {
	return RigidTransform{
		Translation: randomVec(rnd, 500),
		Rotation:    EulerZYX(rnd.Float64()*2*math.Pi, rnd.Float64()*math.Pi-math.Pi/2, rnd.Float64()*2*math.Pi),
	}
}

func TestFromSurveyPointsCanonical(t *testing.T) {
	f, err := FromSurveyPoints(Vec(0, 0, 0), Vec(1, 0, 0), Vec(0, 1, 0))
	require.NoError(t, err)

	assert.True(t, VecNear(f.Origin, Vec(0, 0, 0), testTol))
	assert.True(t, VecNear(f.U, UnitX, testTol))
	assert.True(t, VecNear(f.V, UnitY, testTol))
	assert.True(t, VecNear(f.W, UnitZ, testTol))
}

func TestFromSurveyPointsOrthonormal(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		ball := randomVec(rnd, 1000)
		vee := ball.Add(randomVec(rnd, 100))
		flat := ball.Add(randomVec(rnd, 100))

		f, err := FromSurveyPoints(ball, vee, flat)
		if err != nil {
			// random points may be nearly collinear; that must be reported as a geometry error
			var ge GeometryError
			require.True(t, errors.As(err, &ge), "unexpected error type %T", err)
			continue
		}
		assert.InDelta(t, 1, f.U.Length(), Tolerance)
		assert.InDelta(t, 1, f.V.Length(), Tolerance)
		assert.InDelta(t, 1, f.W.Length(), Tolerance)
		assert.InDelta(t, 0, f.U.Dot(f.V), Tolerance)
		assert.InDelta(t, 0, f.U.Dot(f.W), Tolerance)
		assert.InDelta(t, 0, f.V.Dot(f.W), Tolerance)
		assert.InDelta(t, 1, RotationFromColumns(f.U, f.V, f.W).Det(), 1e-9)
	}
}

func TestFromSurveyPointsDegenerate(t *testing.T) {
	tests := []struct {
		name            string
		ball, vee, flat v3.Vec
	}{
		{"vee equals ball", Vec(1, 2, 3), Vec(1, 2, 3), Vec(0, 1, 0)},
		{"flat on the ball-vee line", Vec(0, 0, 0), Vec(1, 0, 0), Vec(5, 0, 0)},
		{"flat equals ball", Vec(0, 0, 0), Vec(0, 0, 1), Vec(0, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSurveyPoints(tt.ball, tt.vee, tt.flat)
			var ge GeometryError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, "survey frame", ge.Op)
		})
	}
}

func TestNewFrameRejectsNonOrthonormal(t *testing.T) {
	_, err := NewFrame(Vec(0, 0, 0), UnitX, Vec(0.1, math.Sqrt(0.99), 0), UnitZ)
	var ge GeometryError
	require.ErrorAs(t, err, &ge)
	require.NotNil(t, ge.Frame)
	assert.Contains(t, ge.Error(), "u·v")
}

func TestComposeAssociative(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		a, b, c := randomTransform(rnd), randomTransform(rnd), randomTransform(rnd)
		p := randomVec(rnd, 1000)

		left := Compose(Compose(a, b), c).Apply(p)
		right := Compose(a, Compose(b, c)).Apply(p)
		assert.True(t, VecNear(left, right, 1e-6), "iteration %d: %v != %v", i, left, right)
	}
}

func TestComposeOrder(t *testing.T) {
	shift := Translation(Vec(10, 0, 0))
	turn := Rotate(RotationZ(math.Pi / 2))

	// turn first, then shift
	got := Compose(shift, turn).Apply(Vec(1, 0, 0))
	assert.True(t, VecNear(got, Vec(10, 1, 0), testTol), "got %v", got)

	// shift first, then turn
	got = turn.Then(shift).Apply(Vec(1, 0, 0))
	assert.True(t, VecNear(got, Vec(0, 11, 0), testTol), "got %v", got)
}

func TestInverseRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(13))
	for i := 0; i < 200; i++ {
		tr := randomTransform(rnd)
		p := randomVec(rnd, 1000)
		back := tr.Inverse().Apply(tr.Apply(p))
		assert.True(t, VecNear(back, p, 1e-6), "iteration %d: %v != %v", i, back, p)
		assert.True(t, Compose(tr, tr.Inverse()).IsIdentity(1e-9))
	}
}

func TestEulerZYXOrder(t *testing.T) {
	rx, ry, rz := 0.1, -0.2, 0.3
	r := EulerZYX(rx, ry, rz)
	p := Vec(1, 2, 3)

	// x is applied first, z last
	want := RotationZ(rz).Apply(RotationY(ry).Apply(RotationX(rx).Apply(p)))
	assert.True(t, VecNear(r.Apply(p), want, testTol))

	swapped := RotationX(rx).Mul(RotationY(ry)).Mul(RotationZ(rz))
	assert.False(t, r.Near(swapped, 1e-6))
}

func TestEulerZYXDecomposition(t *testing.T) {
	rnd := rand.New(rand.NewSource(17))
	for i := 0; i < 200; i++ {
		r := randomTransform(rnd).Rotation
		rx, ry, rz := r.EulerZYX()
		assert.True(t, EulerZYX(rx, ry, rz).Near(r, 1e-9))
	}

	locked := EulerZYX(0.4, math.Pi/2, 0.1)
	rx, ry, rz := locked.EulerZYX()
	assert.True(t, EulerZYX(rx, ry, rz).Near(locked, 1e-9))
}

func TestAxisAngleMatchesElemental(t *testing.T) {
	for _, angle := range []float64{0, 0.25, -1.3, math.Pi} {
		rz, err := AxisAngle(UnitZ, angle)
		require.NoError(t, err)
		assert.True(t, rz.Near(RotationZ(angle), 1e-12), "z angle %g", angle)

		rx, err := AxisAngle(Vec(3, 0, 0), angle)
		require.NoError(t, err)
		assert.True(t, rx.Near(RotationX(angle), 1e-12), "x angle %g", angle)
	}

	_, err := AxisAngle(Vec(0, 0, 0), 1)
	var ge GeometryError
	assert.ErrorAs(t, err, &ge)
}

func TestNearTolerance(t *testing.T) {
	assert.True(t, VecNear(Vec(1, 2, 3), Vec(1+1e-6, 2, 3-1e-6), Tolerance))
	assert.False(t, VecNear(Vec(1, 2, 3), Vec(1, 2+1e-4, 3), Tolerance))
	assert.True(t, VecNear(Vec(math.Inf(1), 0, 0), Vec(math.Inf(1), 0, 0), Tolerance))

	r := RotationZ(0.3)
	assert.True(t, r.Near(RotationZ(0.3+1e-7), Tolerance))
	assert.False(t, r.Near(RotationZ(0.3+1e-3), Tolerance))
}

func TestRotationValidate(t *testing.T) {
	require.NoError(t, EulerZYX(0.3, 0.2, 0.1).Validate(Tolerance))

	mirror := Rotation{{-1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	assert.Error(t, mirror.Validate(Tolerance))

	skew := Rotation{{1, 0.1, 0}, {0, 1, 0}, {0, 0, 1}}
	assert.Error(t, skew.Validate(Tolerance))
}

func TestFrameTransform(t *testing.T) {
	f := CanonicalFrame()
	require.NoError(t, f.Transform(RigidTransform{Translation: Vec(1, 2, 3), Rotation: RotationZ(math.Pi / 2)}))

	assert.True(t, VecNear(f.Origin, Vec(1, 2, 3), testTol))
	assert.True(t, VecNear(f.U, UnitY, testTol))
	assert.True(t, VecNear(f.V, Vec(-1, 0, 0), testTol))
	assert.True(t, VecNear(f.W, UnitZ, testTol))

	require.NoError(t, f.Translate(Vec(0, 0, -3)))
	assert.True(t, VecNear(f.Origin, Vec(1, 2, 0), testTol))
}

func TestFrameTransformRejectsBadRotation(t *testing.T) {
	f := CanonicalFrame()
	before := f
	err := f.Rotate(Rotation{{2, 0, 0}, {0, 1, 0}, {0, 0, 1}})
	var ge GeometryError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, before, f, "frame must be left untouched on failure")
}

func TestFrameRigidTransformRoundTrip(t *testing.T) {
	f, err := FromSurveyPoints(Vec(10, 0, 5), Vec(10, 1, 5), Vec(9, 0, 5))
	require.NoError(t, err)

	tr := f.ToRigidTransform()
	// local axes land on the frame basis
	assert.True(t, VecNear(tr.Apply(Vec(0, 0, 0)), f.Origin, testTol))
	assert.True(t, VecNear(tr.ApplyVector(UnitX), f.U, testTol))
	assert.True(t, VecNear(tr.ApplyVector(UnitY), f.V, testTol))
	assert.True(t, VecNear(tr.ApplyVector(UnitZ), f.W, testTol))

	back, err := FrameFromTransform(tr)
	require.NoError(t, err)
	assert.True(t, back.Near(f, testTol))
}
