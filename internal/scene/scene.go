// Package scene 调色场景：一组完整的 lift/gamma/gain/offset/contrast/color 参数
package scene

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/camera-bridge/internal/bcs"
)

// DefaultName 内置默认场景名（相机出厂调色）
const DefaultName = "default"

// Contrast 对比度
type Contrast struct {
	Pivot  float64 `yaml:"pivot" json:"pivot"`
	Adjust float64 `yaml:"adjust" json:"adjust"`
}

// Color 色相/饱和度
type Color struct {
	Hue        float64 `yaml:"hue" json:"hue"`
	Saturation float64 `yaml:"saturation" json:"saturation"`
}

// Scene 调色场景
type Scene struct {
	Name     string   `yaml:"name" json:"name"`
	Lift     bcs.Rgbl `yaml:"lift" json:"lift"`
	Gamma    bcs.Rgbl `yaml:"gamma" json:"gamma"`
	Gain     bcs.Rgbl `yaml:"gain" json:"gain"`
	Offset   bcs.Rgbl `yaml:"offset" json:"offset"`
	Contrast Contrast `yaml:"contrast" json:"contrast"`
	Color    Color    `yaml:"color" json:"color"`
}

// Default 中性场景
func Default() Scene {
	return Scene{
		Name:     DefaultName,
		Gain:     bcs.Rgbl{1, 1, 1, 1},
		Contrast: Contrast{Pivot: 0.5, Adjust: 1},
		Color:    Color{Hue: 0, Saturation: 1},
	}
}

// UnmarshalYAML 未写出的字段沿用中性值
func (s *Scene) UnmarshalYAML(node *yaml.Node) error {
	type plain Scene
	v := plain(Default())
	v.Name = ""
	if err := node.Decode(&v); err != nil {
		return err
	}
	*s = Scene(v)
	return nil
}

// Setter 应用场景所需的相机操作
type Setter interface {
	SetLift(bcs.Rgbl)
	SetGamma(bcs.Rgbl)
	SetCCGain(bcs.Rgbl)
	SetOffset(bcs.Rgbl)
	SetContrast(pivot, adjust float64)
	SetColorAdjust(hue, saturation float64)
}

// Apply 依次提交全部调色参数（走合并发送）
func Apply(c Setter, s Scene) {
	c.SetLift(s.Lift)
	c.SetGamma(s.Gamma)
	c.SetCCGain(s.Gain)
	c.SetOffset(s.Offset)
	c.SetContrast(s.Contrast.Pivot, s.Contrast.Adjust)
	c.SetColorAdjust(s.Color.Hue, s.Color.Saturation)
}

// Library 场景库
type Library struct {
	scenes map[string]Scene
}

type file struct {
	Scenes []Scene `yaml:"scenes"`
}

// NewLibrary 仅包含默认场景
func NewLibrary() *Library {
	return &Library{scenes: map[string]Scene{DefaultName: Default()}}
}

// Load 从 YAML 文件加载场景；path 为空返回仅含默认场景的库
func Load(path string) (*Library, error) {
	lib := NewLibrary()
	if path == "" {
		return lib, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenes: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("unmarshal scenes: %w", err)
	}
	seen := make(map[string]bool, len(f.Scenes))
	for i, s := range f.Scenes {
		if s.Name == "" {
			return nil, fmt.Errorf("scenes[%d]: name is required", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("scene %s: duplicate name", s.Name)
		}
		seen[s.Name] = true
		// 文件中的 default 覆盖内置值
		lib.scenes[s.Name] = s
	}
	return lib, nil
}

var ErrNotFound = errors.New("scene not found")

// Get 按名称取场景
func (l *Library) Get(name string) (Scene, error) {
	s, ok := l.scenes[name]
	if !ok {
		return Scene{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// Names 排序后的场景名
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.scenes))
	for n := range l.scenes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
