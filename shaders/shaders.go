// Package shaders embeds the WGSL sources for every pipeline variant.
package shaders

import _ "embed"

//go:embed lit_textured.wgsl
var LitTexturedWGSL string

//go:embed unlit_textured.wgsl
var UnlitTexturedWGSL string

//go:embed unlit_textured_static.wgsl
var UnlitTexturedStaticWGSL string

//go:embed vertex_color.wgsl
var VertexColorWGSL string

//go:embed fullscreen.wgsl
var FullscreenWGSL string
