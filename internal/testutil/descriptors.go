package testutil

import "github.com/palmpay/palmpay/internal/model"

// SyntheticSet builds a deterministic descriptor set. Descriptors within
// one seed are distinct from each other but identical across calls, so a
// set matches itself perfectly and differs from other seeds.
func SyntheticSet(seed byte, count int) model.DescriptorSet {
	set := make(model.DescriptorSet, count)
	for i := range set {
		for j := range set[i] {
			set[i][j] = seed ^ byte(i*7+j*13)
		}
	}
	return set
}

// InvertedSet flips every bit of the given set, putting each descriptor
// at maximal Hamming distance from its source.
func InvertedSet(src model.DescriptorSet) model.DescriptorSet {
	out := make(model.DescriptorSet, len(src))
	for i, d := range src {
		for j, b := range d {
			out[i][j] = ^b
		}
	}
	return out
}

// SyntheticTemplate builds a template of frames descriptor sets derived
// from the seed, one variant per frame.
func SyntheticTemplate(seed byte, frames, count int) model.Template {
	tpl := make(model.Template, frames)
	for i := range tpl {
		tpl[i] = SyntheticSet(seed+byte(i), count)
	}
	return tpl
}

// UniformTemplate builds a template whose frames are all the identical
// descriptor set, useful for exact-score assertions.
func UniformTemplate(set model.DescriptorSet, frames int) model.Template {
	tpl := make(model.Template, frames)
	for i := range tpl {
		tpl[i] = set
	}
	return tpl
}
