//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/arprobe"
	"github.com/gogpu/arprobe/ar"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// ErrNoDevice is returned by Setup when neither Init nor SetDeviceProvider
// produced a device.
var ErrNoDevice = errors.New("gpu: no device")

// fenceTimeout bounds every wait for submitted work.
const fenceTimeout = 5 * time.Second

// SampleRenderer is the wgpu/hal implementation of arprobe.Renderer.
type SampleRenderer struct {
	mu sync.Mutex

	instance       hal.Instance
	device         hal.Device
	queue          hal.Queue
	externalDevice bool // true when using a shared device (don't destroy on Close)

	// Surface objects, created by Setup and released by Release.
	sampleShader      hal.ShaderModule
	previewShader     hal.ShaderModule
	sampleLayout      hal.BindGroupLayout
	previewLayout     hal.BindGroupLayout
	samplePipeLayout  hal.PipelineLayout
	previewPipeLayout hal.PipelineLayout
	samplePipeline    hal.RenderPipeline
	previewPipeline   hal.RenderPipeline
	sampler           hal.Sampler
	quadBuf           hal.Buffer
	previewVertBuf    hal.Buffer
	target            hal.Texture // 1x1 sample target
	targetView        hal.TextureView
	ready             bool

	// Sample buffers, grown on demand.
	uniformBuf  hal.Buffer
	stagingBuf  hal.Buffer
	sampleSlots int

	// Camera texture, recreated when the image size changes.
	cameraTex   hal.Texture
	cameraView  hal.TextureView
	previewBind hal.BindGroup
	texW, texH  int
	uploaded    bool

	// Offscreen preview target, sized by Resize.
	previewTex    hal.Texture
	previewView   hal.TextureView
	width, height int
}

var _ arprobe.Renderer = (*SampleRenderer)(nil)

// Name implements arprobe.Renderer.
func (r *SampleRenderer) Name() string { return "wgpu" }

// SetLogger receives the logger propagated by arprobe.SetLogger.
func (r *SampleRenderer) SetLogger(l *slog.Logger) { setLogger(l) }

// Init opens a standalone Vulkan device. arprobe.RegisterRenderer calls it
// and skips registration when it fails.
func (r *SampleRenderer) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device != nil {
		return nil
	}
	return r.initGPU()
}

func (r *SampleRenderer) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("gpu: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("gpu: open device: %w", err)
	}
	r.instance = instance
	r.device = openDev.Device
	r.queue = openDev.Queue
	slogger().Info("gpu: device opened", "adapter", selected.Info.Name)
	return nil
}

// SetDeviceProvider switches the renderer to a shared device. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device
// and hal.Queue. Surface objects are rebuilt on the new device.
func (r *SampleRenderer) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	wasReady := r.ready
	r.releaseLocked()
	r.destroyDeviceLocked()

	r.device = device
	r.queue = queue
	r.externalDevice = true

	if wasReady {
		if err := r.setupLocked(); err != nil {
			return fmt.Errorf("gpu: setup with shared device: %w", err)
		}
	}
	return nil
}

// Setup implements arprobe.Renderer. It validates the shaders and creates
// both pipelines, the sampler, the quad and the 1x1 sample target.
func (r *SampleRenderer) Setup() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	return r.setupLocked()
}

func (r *SampleRenderer) setupLocked() error {
	if r.device == nil {
		return ErrNoDevice
	}
	if err := validateShaders(); err != nil {
		return err
	}
	if err := r.createPipelines(); err != nil {
		r.releaseLocked()
		return err
	}
	if err := r.createTargets(); err != nil {
		r.releaseLocked()
		return err
	}
	if r.width > 0 && r.height > 0 {
		if err := r.createPreviewTarget(r.width, r.height); err != nil {
			r.releaseLocked()
			return err
		}
	}
	r.ready = true
	return nil
}

func (r *SampleRenderer) createPipelines() error {
	sampleShader, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "arprobe_sample",
		Source: hal.ShaderSource{WGSL: sampleShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile sample shader: %w", err)
	}
	r.sampleShader = sampleShader

	previewShader, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "arprobe_preview",
		Source: hal.ShaderSource{WGSL: previewShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile preview shader: %w", err)
	}
	r.previewShader = previewShader

	cameraTexture := &gputypes.TextureBindingLayout{
		SampleType:    gputypes.TextureSampleTypeFloat,
		ViewDimension: gputypes.TextureViewDimension2D,
	}
	cameraSampler := &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}

	// Binding 0: sample coordinate, 1: camera texture, 2: sampler.
	sampleLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "arprobe_sample_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageFragment, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Texture: cameraTexture},
			{Binding: 2, Visibility: gputypes.ShaderStageFragment, Sampler: cameraSampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create sample bind group layout: %w", err)
	}
	r.sampleLayout = sampleLayout

	previewLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "arprobe_preview_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageFragment, Texture: cameraTexture},
			{Binding: 1, Visibility: gputypes.ShaderStageFragment, Sampler: cameraSampler},
		},
	})
	if err != nil {
		return fmt.Errorf("create preview bind group layout: %w", err)
	}
	r.previewLayout = previewLayout

	samplePipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "arprobe_sample_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{r.sampleLayout},
	})
	if err != nil {
		return fmt.Errorf("create sample pipeline layout: %w", err)
	}
	r.samplePipeLayout = samplePipeLayout

	previewPipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "arprobe_preview_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{r.previewLayout},
	})
	if err != nil {
		return fmt.Errorf("create preview pipeline layout: %w", err)
	}
	r.previewPipeLayout = previewPipeLayout

	samplePipeline, err := r.device.CreateRenderPipeline(quadPipeline("arprobe_sample_pipeline",
		r.samplePipeLayout, r.sampleShader, []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		}, quadVertexStride))
	if err != nil {
		return fmt.Errorf("create sample pipeline: %w", err)
	}
	r.samplePipeline = samplePipeline

	previewPipeline, err := r.device.CreateRenderPipeline(quadPipeline("arprobe_preview_pipeline",
		r.previewPipeLayout, r.previewShader, []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
			{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // uv
		}, previewVertexStride))
	if err != nil {
		return fmt.Errorf("create preview pipeline: %w", err)
	}
	r.previewPipeline = previewPipeline

	// Nearest filtering reads exact camera texels.
	sampler, err := r.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "arprobe_camera_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create camera sampler: %w", err)
	}
	r.sampler = sampler
	return nil
}

// quadPipeline describes a triangle-strip pipeline drawing into RGBA8.
func quadPipeline(label string, layout hal.PipelineLayout, shader hal.ShaderModule, attrs []gputypes.VertexAttribute, stride uint64) *hal.RenderPipelineDescriptor {
	return &hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: stride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes:  attrs,
			}},
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    gputypes.TextureFormatRGBA8Unorm,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleStrip,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
}

func (r *SampleRenderer) createTargets() error {
	quadBuf, err := r.createAndUploadBuffer("arprobe_quad", quadVertexData(),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	r.quadBuf = quadBuf

	previewVertBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "arprobe_preview_verts",
		Size:  uint64(len(quadCorners) * previewVertexStride),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create preview vertex buffer: %w", err)
	}
	r.previewVertBuf = previewVertBuf

	target, view, err := r.createRenderTarget("arprobe_sample_target", 1, 1)
	if err != nil {
		return err
	}
	r.target, r.targetView = target, view
	return r.ensureSampleBuffers(1)
}

func (r *SampleRenderer) createRenderTarget(label string, w, h int) (hal.Texture, hal.TextureView, error) {
	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // display dimensions fit uint32
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", label, err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

func (r *SampleRenderer) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	r.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// ensureSampleBuffers grows the uniform and staging buffers to hold n
// samples, doubling the capacity.
func (r *SampleRenderer) ensureSampleBuffers(n int) error {
	if n <= r.sampleSlots {
		return nil
	}
	slots := max(r.sampleSlots, 8)
	for slots < n {
		slots *= 2
	}
	size := uint64(slots * sampleSlot) //nolint:gosec // slot count is small

	uniformBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "arprobe_sample_uniforms",
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create sample uniform buffer: %w", err)
	}
	stagingBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "arprobe_sample_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.device.DestroyBuffer(uniformBuf)
		return fmt.Errorf("create sample staging buffer: %w", err)
	}

	r.destroySampleBuffers()
	r.uniformBuf, r.stagingBuf, r.sampleSlots = uniformBuf, stagingBuf, slots
	return nil
}

// Resize implements arprobe.Renderer. It reallocates the preview target.
func (r *SampleRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == r.width && height == r.height && r.previewTex != nil {
		return
	}
	r.width, r.height = width, height
	r.destroyPreviewTarget()
	if !r.ready || width <= 0 || height <= 0 {
		return
	}
	if err := r.createPreviewTarget(width, height); err != nil {
		slogger().Warn("gpu: preview target not created", "width", width, "height", height, "err", err)
	}
}

func (r *SampleRenderer) createPreviewTarget(w, h int) error {
	tex, view, err := r.createRenderTarget("arprobe_preview_target", w, h)
	if err != nil {
		return err
	}
	r.previewTex, r.previewView = tex, view
	return nil
}

// DrawPreview implements arprobe.Renderer. The camera image is uploaded
// once and drawn with the texture coordinates the engine reports for the
// display corners.
func (r *SampleRenderer) DrawPreview(frame ar.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return arprobe.ErrNotSetUp
	}
	if err := r.uploadCamera(frame); err != nil {
		return err
	}
	if r.previewView == nil {
		return nil
	}

	uv := frame.TransformCoordinates2D(ar.SpaceNDC, ar.SpaceTextureNormalized, quadCorners)
	r.queue.WriteBuffer(r.previewVertBuf, 0, previewVertexData(uv))

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "arprobe_preview_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("arprobe_preview"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "arprobe_preview_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.previewView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(r.previewPipeline)
	rp.SetBindGroup(0, r.previewBind, nil)
	rp.SetVertexBuffer(0, r.previewVertBuf, 0)
	rp.Draw(uint32(len(quadCorners)), 1, 0, 0)
	rp.End()
	return r.submitAndWait(encoder)
}

// uploadCamera writes the frame's camera image to the camera texture,
// recreating the texture when the image size changed.
func (r *SampleRenderer) uploadCamera(frame ar.Frame) error {
	img, err := frame.CameraTexture()
	if err != nil {
		return err
	}
	pix, w, h := rgbaPixels(img)
	if w == 0 || h == 0 {
		return fmt.Errorf("gpu: empty camera image")
	}
	if err := r.ensureCameraTexture(w, h); err != nil {
		return err
	}
	r.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: r.cameraTex, MipLevel: 0},
		pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: uint32(w * 4), RowsPerImage: uint32(h)}, //nolint:gosec // image dimensions fit uint32
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},            //nolint:gosec // image dimensions fit uint32
	)
	r.uploaded = true
	return nil
}

func (r *SampleRenderer) ensureCameraTexture(w, h int) error {
	if r.cameraTex != nil && r.texW == w && r.texH == h {
		return nil
	}
	r.destroyCameraTexture()

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "arprobe_camera",
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // image dimensions fit uint32
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create camera texture: %w", err)
	}
	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "arprobe_camera_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return fmt.Errorf("create camera texture view: %w", err)
	}
	bind, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "arprobe_preview_bind",
		Layout: r.previewLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		r.device.DestroyTextureView(view)
		r.device.DestroyTexture(tex)
		return fmt.Errorf("create preview bind group: %w", err)
	}
	r.cameraTex, r.cameraView, r.previewBind = tex, view, bind
	r.texW, r.texH = w, h
	slogger().Debug("gpu: camera texture allocated", "width", w, "height", h)
	return nil
}

// SampleColors implements arprobe.ColorSampler. Every coordinate is drawn
// into the 1x1 target and copied to its own staging slot; the whole batch
// is one command buffer, one submit and one fence wait.
func (r *SampleRenderer) SampleColors(frame ar.Frame, texCoords []arprobe.Coordinate) ([]arprobe.RGBA, error) {
	if len(texCoords) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ready {
		return nil, arprobe.ErrNotSetUp
	}
	if !r.uploaded {
		if err := r.uploadCamera(frame); err != nil {
			return nil, err
		}
	}
	n := len(texCoords)
	if err := r.ensureSampleBuffers(n); err != nil {
		return nil, err
	}
	r.queue.WriteBuffer(r.uniformBuf, 0, sampleUniformData(texCoords))

	bindGroups, err := r.createSampleBindings(n)
	defer r.destroyBindGroups(bindGroups)
	if err != nil {
		return nil, err
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "arprobe_sample_encoder"})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("arprobe_sample"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	for i, bg := range bindGroups {
		r.encodeSample(encoder, bg, uint64(i*sampleSlot)) //nolint:gosec // slot offset is small
	}
	if err := r.submitAndWait(encoder); err != nil {
		return nil, err
	}

	readback := make([]byte, n*sampleSlot)
	if err := r.queue.ReadBuffer(r.stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return decodeSamples(readback, n), nil
}

// encodeSample draws one sample and copies the texel to offset in the
// staging buffer.
func (r *SampleRenderer) encodeSample(encoder hal.CommandEncoder, bg hal.BindGroup, offset uint64) {
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "arprobe_sample_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       r.targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
		}},
	})
	rp.SetPipeline(r.samplePipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.SetVertexBuffer(0, r.quadBuf, 0)
	rp.Draw(uint32(len(quadCorners)), 1, 0, 0)
	rp.End()

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(r.target, r.stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: offset, BytesPerRow: sampleSlot, RowsPerImage: 1},
		TextureBase:  hal.ImageCopyTexture{Texture: r.target, MipLevel: 0},
		Size:         hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: r.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
}

// createSampleBindings creates one bind group per sample, each pointing at
// its slot of the uniform buffer. On error the groups created so far are
// returned for cleanup.
func (r *SampleRenderer) createSampleBindings(n int) ([]hal.BindGroup, error) {
	groups := make([]hal.BindGroup, 0, n)
	for i := range n {
		bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "arprobe_sample_bind",
			Layout: r.sampleLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: r.uniformBuf.NativeHandle(), Offset: uint64(i * sampleSlot), Size: 16}}, //nolint:gosec // slot offset is small
				{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: r.cameraView.NativeHandle()}},
				{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
			},
		})
		if err != nil {
			return groups, fmt.Errorf("create sample bind group %d: %w", i, err)
		}
		groups = append(groups, bg)
	}
	return groups, nil
}

// submitAndWait ends encoding, submits and blocks on a fence.
func (r *SampleRenderer) submitAndWait(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := r.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// Release implements arprobe.Renderer. The device is kept for the next
// Setup.
func (r *SampleRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
}

// Close releases everything, including an owned device.
func (r *SampleRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
	r.destroyDeviceLocked()
}

// releaseLocked destroys surface objects in reverse creation order.
func (r *SampleRenderer) releaseLocked() {
	r.ready = false
	if r.device == nil {
		return
	}
	r.destroyPreviewTarget()
	r.destroyCameraTexture()
	r.destroySampleBuffers()
	r.sampleSlots = 0
	if r.targetView != nil {
		r.device.DestroyTextureView(r.targetView)
		r.targetView = nil
	}
	if r.target != nil {
		r.device.DestroyTexture(r.target)
		r.target = nil
	}
	if r.previewVertBuf != nil {
		r.device.DestroyBuffer(r.previewVertBuf)
		r.previewVertBuf = nil
	}
	if r.quadBuf != nil {
		r.device.DestroyBuffer(r.quadBuf)
		r.quadBuf = nil
	}
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.previewPipeline != nil {
		r.device.DestroyRenderPipeline(r.previewPipeline)
		r.previewPipeline = nil
	}
	if r.samplePipeline != nil {
		r.device.DestroyRenderPipeline(r.samplePipeline)
		r.samplePipeline = nil
	}
	if r.previewPipeLayout != nil {
		r.device.DestroyPipelineLayout(r.previewPipeLayout)
		r.previewPipeLayout = nil
	}
	if r.samplePipeLayout != nil {
		r.device.DestroyPipelineLayout(r.samplePipeLayout)
		r.samplePipeLayout = nil
	}
	if r.previewLayout != nil {
		r.device.DestroyBindGroupLayout(r.previewLayout)
		r.previewLayout = nil
	}
	if r.sampleLayout != nil {
		r.device.DestroyBindGroupLayout(r.sampleLayout)
		r.sampleLayout = nil
	}
	if r.previewShader != nil {
		r.device.DestroyShaderModule(r.previewShader)
		r.previewShader = nil
	}
	if r.sampleShader != nil {
		r.device.DestroyShaderModule(r.sampleShader)
		r.sampleShader = nil
	}
}

func (r *SampleRenderer) destroyDeviceLocked() {
	if !r.externalDevice {
		if r.device != nil {
			r.device.Destroy()
		}
		if r.instance != nil {
			r.instance.Destroy()
		}
	}
	r.device = nil
	r.queue = nil
	r.instance = nil
	r.externalDevice = false
}

func (r *SampleRenderer) destroyPreviewTarget() {
	if r.previewView != nil {
		r.device.DestroyTextureView(r.previewView)
		r.previewView = nil
	}
	if r.previewTex != nil {
		r.device.DestroyTexture(r.previewTex)
		r.previewTex = nil
	}
}

func (r *SampleRenderer) destroyCameraTexture() {
	if r.previewBind != nil {
		r.device.DestroyBindGroup(r.previewBind)
		r.previewBind = nil
	}
	if r.cameraView != nil {
		r.device.DestroyTextureView(r.cameraView)
		r.cameraView = nil
	}
	if r.cameraTex != nil {
		r.device.DestroyTexture(r.cameraTex)
		r.cameraTex = nil
	}
	r.texW, r.texH = 0, 0
	r.uploaded = false
}

func (r *SampleRenderer) destroySampleBuffers() {
	if r.stagingBuf != nil {
		r.device.DestroyBuffer(r.stagingBuf)
		r.stagingBuf = nil
	}
	if r.uniformBuf != nil {
		r.device.DestroyBuffer(r.uniformBuf)
		r.uniformBuf = nil
	}
}

func (r *SampleRenderer) destroyBindGroups(groups []hal.BindGroup) {
	for _, bg := range groups {
		r.device.DestroyBindGroup(bg)
	}
}
