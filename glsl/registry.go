// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"

	"github.com/gogpu/fragc/diag"
	"github.com/gogpu/fragc/resolve"
)

const mathOwner = resolve.MathLibrary

// textCall renders a call to a built-in function. self is the receiver
// text for member functions and empty for static ones.
type textCall func(f *funcWriter, self string, args []string) string

// registry is the textual counterpart of resolve.Registry: built-in calls
// keyed by owner type and function name. GLSL overloads by argument type,
// so signatures are not part of the key.
type registry struct {
	calls map[string]textCall
}

func callKey(owner, name string) string {
	return owner + "." + name
}

func newRegistry(p policy) *registry {
	r := &registry{calls: make(map[string]textCall)}
	registerMath(r)
	registerImages(r)
	p.register(r)
	return r
}

func (r *registry) addStatic(owner, name string, fn textCall) {
	r.calls[callKey(owner, name)] = fn
}

func (r *registry) addMethod(owner, name string, fn textCall) {
	r.calls[callKey(owner, name)] = fn
}

func (r *registry) lookup(owner, name string) (textCall, bool) {
	fn, ok := r.calls[callKey(owner, name)]
	return fn, ok
}

// direct renders name(args...).
func direct(name string) textCall {
	return func(_ *funcWriter, _ string, args []string) string {
		return name + "(" + strings.Join(args, ", ") + ")"
	}
}

// method renders name(self, args...).
func method(name string) textCall {
	return func(_ *funcWriter, self string, args []string) string {
		return name + "(" + strings.Join(append([]string{self}, args...), ", ") + ")"
	}
}

var mathNames = map[string]string{
	"Abs":        "abs",
	"Floor":      "floor",
	"Ceil":       "ceil",
	"Fract":      "fract",
	"Sin":        "sin",
	"Cos":        "cos",
	"Tan":        "tan",
	"Pow":        "pow",
	"Exp":        "exp",
	"Log":        "log",
	"Sqrt":       "sqrt",
	"Min":        "min",
	"Max":        "max",
	"Clamp":      "clamp",
	"Lerp":       "mix",
	"Step":       "step",
	"SmoothStep": "smoothstep",
	"Length":     "length",
	"Distance":   "distance",
	"Cross":      "cross",
	"Normalize":  "normalize",
	"Reflect":    "reflect",
	"Dot":        "dot",
	"Ddx":        "dFdx",
	"Ddy":        "dFdy",
	"Fwidth":     "fwidth",
	"Atan2":      "atan",
}

func registerMath(r *registry) {
	for name, glsl := range mathNames {
		r.addStatic(mathOwner, name, direct(glsl))
	}
	r.addStatic(mathOwner, "Saturate", func(_ *funcWriter, _ string, args []string) string {
		return "clamp(" + args[0] + ", 0.0, 1.0)"
	})
}

func registerImages(r *registry) {
	for _, owner := range []string{resolve.Image2d, resolve.DepthImage2d} {
		for _, name := range []string{"Sample", "SampleLod"} {
			owner, name := owner, name
			r.addMethod(owner, name, func(f *funcWriter, _ string, _ []string) string {
				f.errorf(diag.KindResolution, "%s.%s samples through a separate sampler, which GLSL cannot express; use a sampled image", owner, name)
				return "vec4(0.0)"
			})
		}
	}
	r.addMethod(resolve.StorageImage2d, "Load", method("imageLoad"))
	r.addMethod(resolve.StorageImage2d, "Store", method("imageStore"))
}

// sampling registers Sample and SampleLod on the combined image types.
func (r *registry) sampling(sample, sampleLod string) {
	for _, owner := range []string{resolve.SampledImage2d, resolve.SampledDepthImage2d} {
		r.addMethod(owner, "Sample", method(sample))
		r.addMethod(owner, "SampleLod", method(sampleLod))
	}
}
