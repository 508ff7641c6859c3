package coder

import (
	"bufio"
	"bytes"
	"github.com/mocukie/mngs/pkg/payload"
	"github.com/pkg/errors"
	"image/png"
	"os"
	"os/exec"
	"strconv"
)

// HTML writes interactive figures and prebuilt documents.
type HTML struct{}

func (*HTML) Name() string         { return "HTML" }
func (*HTML) Extensions() []string { return []string{".html"} }

func (*HTML) Encode(v interface{}, path string, _ *Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	w := bufio.NewWriter(f)
	switch val := v.(type) {
	case payload.HTMLer:
		err = errors.Wrap(val.WriteHTML(w), "[HTML] render figure failed")
	case string:
		_, err = w.WriteString(val)
	case []byte:
		_, err = w.Write(val)
	default:
		return errors.Errorf("[HTML] unsupported payload %T", v)
	}
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrap(w.Flush(), "[HTML] flush output failed")
}

// MP4 pipes the frames of an animation as PNG images through ffmpeg.
type MP4 struct {
	// Bin is the ffmpeg executable, looked up in PATH when empty.
	Bin string
}

func (*MP4) Name() string         { return "MP4" }
func (*MP4) Extensions() []string { return []string{".mp4"} }

func (m *MP4) Encode(v interface{}, path string, opts *Options) error {
	anim, ok := v.(payload.Animation)
	if !ok {
		return errors.Errorf("[MP4] unsupported payload %T", v)
	}
	if anim.Frames() <= 0 {
		return errors.New("[MP4] animation has no frames")
	}
	bin := m.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	bin, err := exec.LookPath(bin)
	if err != nil {
		return errors.Wrap(err, "[MP4] ffmpeg not found")
	}

	cmd := exec.Command(bin, "-y", "-loglevel", "error",
		"-f", "image2pipe", "-vcodec", "png", "-r", strconv.Itoa(opts.FPS), "-i", "-",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.WithStack(err)
	}
	if err = cmd.Start(); err != nil {
		return errors.Wrap(err, "[MP4] start ffmpeg failed")
	}

	w := bufio.NewWriter(stdin)
	for i := 0; i < anim.Frames() && err == nil; i++ {
		img, e := anim.Frame(i)
		if e != nil {
			err = errors.Wrapf(e, "[MP4] render frame %d failed", i)
			break
		}
		if e = png.Encode(w, img); e != nil {
			err = errors.Wrapf(e, "[MP4] write frame %d failed", i)
		}
	}
	if err == nil {
		err = errors.Wrap(w.Flush(), "[MP4] flush frames failed")
	}
	_ = stdin.Close()
	if e := cmd.Wait(); e != nil && err == nil {
		err = errors.Wrapf(e, "[MP4] ffmpeg failed: %s", bytes.TrimSpace(stderr.Bytes()))
	}
	return err
}

const cbmMagic = "CBM1"

// CBM stores gradient boosted tree models as the opaque blob produced by
// the training library.
type CBM struct{}

func (*CBM) Name() string         { return "CBM" }
func (*CBM) Extensions() []string { return []string{".cbm"} }

func (*CBM) Decode(path string, _ *Options) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !bytes.HasPrefix(data, []byte(cbmMagic)) {
		return nil, errors.New("[CBM] not a model file")
	}
	return &payload.Model{Format: "cbm", Bytes: data}, nil
}

func (*CBM) Encode(v interface{}, path string, _ *Options) error {
	var m *payload.Model
	switch val := v.(type) {
	case *payload.Model:
		m = val
	case payload.Model:
		m = &val
	default:
		return errors.Errorf("[CBM] unsupported payload %T", v)
	}
	if !bytes.HasPrefix(m.Bytes, []byte(cbmMagic)) {
		return errors.New("[CBM] model bytes lack the CBM1 magic")
	}
	return errors.WithStack(os.WriteFile(path, m.Bytes, 0o644))
}

func init() {
	Register(&HTML{})
	Register(&MP4{})
	Register(&CBM{})
}
