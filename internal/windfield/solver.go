package windfield

import (
	"math"
	"math/cmplx"
)

// ringInput is everything the closed-form solution needs at one mesh node.
type ringInput struct {
	radius   float64 // m
	theta    float64 // mesh angle, rad
	beta     float64 // storm heading in the mesh convention, rad
	coriolis float64
	speed    float64 // translation speed, m/s
	deficit  float64 // central pressure deficit, Pa
	rmw      float64 // m
	hollandB float64
	z0       float64
}

// ringSolution holds the height-independent part of the solution at one mesh
// node. Evaluating a height from it costs three complex exponentials.
type ringSolution struct {
	a0, a1, am complex128
	p0, p1, pm complex128
	scale      float64 // along-wind scaling sqrt(alpha/beta)
	gradient   float64 // gradient wind speed vg
	theta      float64
}

// solveRing computes the Holland pressure profile, the gradient wind and the
// boundary-layer decay exponents and amplitudes for wave numbers 0, +1 and -1
// at a single radius and azimuth. Non-finite intermediates are not trapped.
func (p Physics) solveRing(in ringInput) ringSolution {
	var (
		k   = p.EddyViscosity
		rho = p.AirDensity
		r   = in.radius
		f   = in.coriolis
		v   = in.speed
		b   = in.hollandB
	)

	cd := dragCoefficient(in.z0)

	// Holland pressure gradient and its radial derivative.
	rmB := math.Pow(in.rmw, b)
	dp := b * rmB * in.deficit * math.Pow(r, -b-1) * math.Exp(-math.Pow(in.rmw/r, b))
	dp2 := (-(b+1)/r + b*rmB*math.Pow(r, -b-1)) * dp

	// Gradient wind: positive root of vg² - c·vg - r/ρ·∂p/∂r = 0.
	sinT, cosT := math.Sincos(in.theta - in.beta)
	c := -v*sinT - f*r
	sq := math.Sqrt(c*c/4 + r/rho*dp)
	vg := c/2 + sq

	dvr := -f/2 + 0.5/sq*(-c*f/2+dp/rho+r*dp2/rho)
	dvt := -v*cosT/2 + 0.25*v*cosT*(-c)/sq
	bb := dvt / (2 * k * r)

	alpha := (f + 2*vg/r) / (2 * k)
	beta := (f + vg/r + dvr) / (2 * k)
	gamma := vg / r / (2 * k)

	const oneI = 1 + 1i
	ab := cmplx.Sqrt(complex(alpha*beta, 0))
	p0 := -oneI * cmplx.Sqrt(ab)
	p1 := -oneI * cmplx.Sqrt(complex(gamma-bb, 0)+ab)
	pm := -oneI * cmplx.Sqrt(complex(-gamma-bb, 0)+ab)

	fr := complex(f*r*cd/k, 0)
	sqc := complex(sq*cd/k, 0)
	t := complex(v*v*cd*cd/(4*k*k), 0)
	d1 := p1 - cmplx.Conj(pm)
	d2 := cmplx.Conj(p1) - pm

	x1 := p0 + fr - 2*sqc - t/d1 + t/d2
	x2 := -cmplx.Conj(p0) - fr + 2*sqc - t/d1 + t/d2
	x3 := complex(0, -2) * complex(cd/k, 0) * complex((sq-f*r/2)*(sq-f*r/2), 0)
	x4 := -(-p0 - fr/2 + sqc) / (-cmplx.Conj(p0) - fr/2 + sqc)

	a0 := -x3 / (x1 + x2*x4)
	a1 := complex(0, 1) * complex(v*cd, 0) * cmplx.Exp(complex(0, -in.beta)) /
		(complex(4*k, 0) * d1) * (a0 + cmplx.Conj(a0))
	am := -cmplx.Conj(a1)

	return ringSolution{
		a0: a0, a1: a1, am: am,
		p0: p0, p1: p1, pm: pm,
		scale:    real(cmplx.Sqrt(complex(alpha/beta, 0))),
		gradient: vg,
		theta:    in.theta,
	}
}

// speeds writes the wind speed at each height into dst.
func (s *ringSolution) speeds(heights, dst []float64) {
	it := complex(0, s.theta)
	for i, z := range heights {
		zc := complex(z, 0)
		e0 := s.a0 * cmplx.Exp(s.p0*zc)
		e1 := s.a1 * cmplx.Exp(s.p1*zc+it)
		em := s.am * cmplx.Exp(s.pm*zc-it)
		u := s.scale * (real(e0) + real(e1) + real(em))
		w := imag(e0) + imag(e1) + imag(em) + s.gradient
		dst[i] = math.Hypot(u, w)
	}
}
