package scene

import (
	"math/rand/v2"

	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// Material names of the textured scene.
const (
	MatBricks  = "bricks"
	MatRoof    = "rooftile"
	MatLantern = "lantern"
	MatTile    = "tile"
	MatWater   = "water"
	MatLeaves  = "leaves"
	MatTrunk   = "trunk"
)

// TowerItemCount is the number of items composeTower emits.
const TowerItemCount = 89

type addFunc func(sub string, world vmath.Mat4, material string) error

// srt scales, then rotates, then translates.
func srt(sx, sy, sz float32, r vmath.Mat4, tx, ty, tz float32) vmath.Mat4 {
	return vmath.Translate(tx, ty, tz).Mul(r).Mul(vmath.Scale(sx, sy, sz))
}

var none = vmath.Identity()

// composeTower emits the keep, its tiers, roofs, lanterns, the tree rows
// and the ground grid, in object-CB order.
func composeTower(opts Options, add addFunc) error {
	var err error
	emit := func(sub string, world vmath.Mat4, mat string) {
		if err == nil {
			err = add(sub, world, mat)
		}
	}

	// Gatehouse.
	emit(SubBox, srt(8, 13, 8, none, 0, 2.5, -20), MatBricks)
	emit(SubPyramid, srt(9, 3, 9, vmath.RotateY(3.14), 0, 8, -20), MatRoof)
	emit(SubPentagonalPrism, srt(4, 0.5, 4, vmath.RotateX(-1.57), 0, 12, -18), MatBricks)

	// Four tiers, each a box ringed by wedges with a window on either side.
	const sizeZ = 27
	for i := 0; i < 4; i++ {
		fi := float32(i)
		side := sizeZ - 4*fi
		y := 8.5 + 7*fi

		emit(SubBox, srt(side, 20, side, none, 0, 3.9+7*fi, 5), MatBricks)
		emit(SubWedge, srt(3, 1, side, vmath.RotateY(-1.57), 0, y, -17+3*fi), MatBricks)
		emit(SubWedge, srt(3, 1, side, vmath.RotateY(1.57), 0, y, 27-3*fi), MatBricks)
		emit(SubWedge, srt(3, 1, side, none, -22+3*fi, y, 5), MatBricks)
		emit(SubWedge, srt(3, 1, side, vmath.RotateY(3.14), 22-3*fi, y, 5), MatBricks)

		for u := float32(-1); u <= 1; u += 2 {
			emit(SubPentagonalPrism, srt(2, 0.5, 2, vmath.RotateX(-1.57), (14-2*fi)*u, 5+7*fi, -16+3.5*fi), MatBricks)
		}
	}

	// Two rows of trees.
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	jitter := func() float32 {
		if opts.TreeJitter == 0 {
			return 0
		}
		return (rng.Float32()*2 - 1) * opts.TreeJitter
	}
	for i := -3; i < 4; i++ {
		for u := float32(-1); u <= 1; u += 2 {
			x := 25*u + jitter()
			z := -7.5*float32(i) + jitter()
			emit(SubCone, srt(5, 3, 5, none, x, 7, z), MatLeaves)
			emit(SubCylinder, srt(1.5, 1, 1.5, none, x, 1, z), MatTrunk)
		}
	}

	// Roofs.
	emit(SubTriangularPrism, srt(13, 6, 7, vmath.RotateX(-1.57), 0, 14, -13), MatRoof)
	emit(SubTriangularPrism, srt(8, 22.5, 7, vmath.RotateY(-1.57).Mul(vmath.RotateX(-1.57)), 0, 20, 17.7), MatRoof)
	for i := float32(-1); i <= 1; i += 2 {
		emit(SubPyramid, srt(10, 4, 4, vmath.RotateY(3.14), 9*i, 12, 23), MatRoof)
	}
	for i := 0; i < 4; i++ {
		for u := float32(-1); u <= 1; u += 2 {
			emit(SubPyramid, srt(4, 2, 4, vmath.RotateY(3.14), 17*u, 14, -7+8*float32(i)), MatRoof)
		}
	}
	emit(SubPyramid, srt(15.4, 4, 15.4, vmath.RotateY(3.14), 0, 32.5, 5), MatRoof)
	emit(SubTriangularPrism, srt(10, 14, 6, vmath.RotateY(-1.57).Mul(vmath.RotateX(-1.57)), 0, 32, 5), MatRoof)

	// Lanterns.
	for i := float32(-1); i <= 1; i += 2 {
		emit(SubDiamond, srt(1, 2, 1, none, 6.5*i, 4.2, -26.5), MatLantern)
	}
	for i := -2; i < 3; i++ {
		emit(SubDiamond, srt(1, 2, 1, none, 5*float32(i), 27, -10), MatLantern)
	}

	emit(SubGrid, vmath.Scale(3, 1, 2), MatTile)

	for i := 0; i < 4; i++ {
		for u := float32(-1); u <= 1; u += 2 {
			emit(SubSphere, srt(2, 2, 2, none, 15*u, 27.5, 3+3*float32(i)), MatLantern)
		}
	}
	return err
}
