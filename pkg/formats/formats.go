// Package formats provides decoders for the texture file formats the
// renderer loads: DirectDraw Surface (DDS) with BC1-BC3 or 32-bit texels,
// and Truevision TGA.
package formats

// Note: DDS is implemented in dds.go, block decompression in bc.go.
// Note: TGA is implemented in tga.go.
