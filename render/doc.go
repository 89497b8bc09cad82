// Package render turns registered objects into text for tools.
//
// Both renderers walk an object through its type descriptor and the
// registry's tagged field access, so they work on any registered type
// without knowing it at compile time:
//
//	ed := render.NewEditor(reg, render.WithStyles(render.DefaultStyles()))
//	ed.Render(os.Stdout, mem, base, player)
//	ed.Set(mem, base, player, "speed", "7.5")
//
//	js := render.NewJSON(reg)
//	js.Encode(os.Stdout, mem, base, player)
//
// Rows flattens an object for interactive inspectors.
package render
