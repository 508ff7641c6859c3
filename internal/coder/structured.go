package coder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"github.com/clbanning/mxj/v2"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
)

type JSON struct{}

func (*JSON) Name() string         { return "JSON" }
func (*JSON) Extensions() []string { return []string{".json"} }

func (*JSON) Decode(path string, _ *Options) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var v interface{}
	if err = json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "[JSON] parse failed")
	}
	return v, nil
}

func (*JSON) Encode(v interface{}, path string, _ *Options) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return errors.Wrap(err, "[JSON] marshal failed")
	}
	return errors.WithStack(os.WriteFile(path, data, 0o644))
}

type YAML struct{}

func (*YAML) Name() string         { return "YAML" }
func (*YAML) Extensions() []string { return []string{".yaml", ".yml"} }

func (*YAML) Decode(path string, opts *Options) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var v interface{}
	if err = yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "[YAML] parse failed")
	}
	if m, ok := v.(map[string]interface{}); ok && opts.Lower {
		lowered := make(map[string]interface{}, len(m))
		for k, x := range m {
			lowered[strings.ToLower(k)] = x
		}
		v = lowered
	}
	return v, nil
}

func (*YAML) Encode(v interface{}, path string, _ *Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = errors.WithStack(e)
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(4)
	if err = enc.Encode(v); err != nil {
		return errors.Wrap(err, "[YAML] marshal failed")
	}
	return errors.Wrap(enc.Close(), "[YAML] flush output failed")
}

// XML maps documents to nested maps keyed by element name. Attributes are
// keys prefixed with "-".
type XML struct{}

func (*XML) Name() string         { return "XML" }
func (*XML) Extensions() []string { return []string{".xml"} }

func (*XML) Decode(path string, _ *Options) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	m, err := mxj.NewMapXmlReader(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err, "[XML] parse failed")
	}
	return map[string]interface{}(m), nil
}

func (*XML) Encode(v interface{}, path string, _ *Options) error {
	m, ok := v.(map[string]interface{})
	if !ok {
		return errors.Errorf("[XML] unsupported payload %T", v)
	}
	data, err := mxj.Map(m).XmlIndent("", "    ")
	if err != nil {
		return errors.Wrap(err, "[XML] marshal failed")
	}
	data = append([]byte(xmlHeader), data...)
	return errors.WithStack(os.WriteFile(path, append(data, '\n'), 0o644))
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

type MsgPack struct{}

func (*MsgPack) Name() string         { return "MsgPack" }
func (*MsgPack) Extensions() []string { return []string{".msgpack"} }

func (*MsgPack) Decode(path string, _ *Options) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, errors.Wrap(err, "[MsgPack] unmarshal failed")
	}
	return v, nil
}

func (*MsgPack) Encode(v interface{}, path string, _ *Options) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "[MsgPack] marshal failed")
	}
	return errors.WithStack(os.WriteFile(path, buf.Bytes(), 0o644))
}

func init() {
	Register(&JSON{})
	Register(&YAML{})
	Register(&XML{})
	Register(&MsgPack{})
}
