// Package framegraph builds GPU frames from a declarative list of
// components.
//
// # Overview
//
// A frame is described as an ordered list of components: compute
// dispatches, render passes, clears, buffer and texture copies, host
// callbacks and groups of these. Build turns the list into a Graph once,
// allocating every referenced buffer and texture, compiling one WGSL
// library and creating pipelines. Graph.Draw then encodes and submits the
// frame every time it is called.
//
// GPU access goes through github.com/gogpu/wgpu/hal. The host owns the
// device and hands it over as a DeviceHandle.
//
// # Quick Start
//
//	particles := framegraph.NewBuffer[Particle](4096)
//	speed := framegraph.NewBinding[float32](1).Named("f32", "speed")
//
//	g, err := framegraph.Build(handle, []framegraph.Component{
//		framegraph.NewCompute("simulate").
//			Buffer("particles", particles, framegraph.FitGrid()).
//			Bytes(speed),
//		framegraph.NewClearRender().Color(framegraph.Constant(framegraph.RGB(0, 0, 0))),
//		framegraph.NewRender("vs_main", "fs_main").
//			Primitive(gputypes.PrimitiveTopologyPointList).
//			VertexBuffer("points", particles, framegraph.Slot(2)).
//			VertexCount(framegraph.Constant(4096)).
//			ColorAttachment(0, framegraph.ColorAttachment{
//				Load: framegraph.Constant(gputypes.LoadOpLoad),
//			}),
//	}, framegraph.WithShaderSource(wgsl), framegraph.WithViewport(800, 600))
//
//	for running {
//		speed.Set(ui.Speed())
//		if err := g.Draw(ctx, drawable); err != nil {
//			log.Print(err) // the frame was dropped, the graph is still usable
//		}
//	}
//
// # Resources
//
// Buffer and Texture are containers. They are created empty, shared freely
// between components, and allocated by Build. A container is identified by
// its ResourceID: referencing the same container from many components
// yields one allocation. Textures sized from the viewport are re-allocated
// by Graph.Resize.
//
// # Bindings
//
// A Binding is a mutable cell read every frame. Component parameters such
// as vertex counts, clear colors, copy ranges and group repeat counts are
// bindings, so a graph built once can change behaviour per frame without
// being rebuilt. Bindings passed with Bytes become uniform buffers.
//
// # Shader Arguments
//
// For every compute and render component Build generates the WGSL
// declarations of its arguments and compiles them ahead of the library
// code. Slots are counted separately per stage and kind, and each slot
// space has its own bind group:
//
//	compute buffers   @group(0)    compute textures  @group(1)
//	vertex buffers    @group(0)    vertex textures   @group(1)
//	fragment buffers  @group(2)    fragment textures @group(3)
//
// A sampled texture at slot n gets a filtering sampler at slot n+16.
//
// # Errors
//
// Build returns *BuildError, *ArgumentBufferError or *ResourceError and
// leaves nothing allocated. Draw returns *EncodeError or a wrapped pass
// error and drops the frame. Every typed error also matches its Err
// sentinel with errors.Is.
package framegraph
