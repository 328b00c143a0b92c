package game

import (
	"encoding/gob"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/decker502/fxsim/pkg/components"
)

// CaptureVersion 捕获文件格式版本
// 修改 CaptureData 结构时递增
const CaptureVersion = 1

// CaptureData 一次模拟的逐帧绘制记录
//
// 用于回归对比：相同特效、种子和步长应产生逐位相同的捕获。
type CaptureData struct {
	Version  int
	SaveTime time.Time

	Effect string  // 特效名
	Seed   uint64  // 实例种子
	Dt     float64 // 固定步长（秒）

	Frames []CaptureFrame
}

// CaptureFrame 单步之后的状态
type CaptureFrame struct {
	Step      int
	Time      float64
	Particles int
	Dropped   int
	Records   []components.DrawRecord
}

// NewCaptureData 创建空捕获
func NewCaptureData(effect string, seed uint64, dt float64) *CaptureData {
	return &CaptureData{
		Version: CaptureVersion,
		Effect:  effect,
		Seed:    seed,
		Dt:      dt,
	}
}

// Record 追加实例当前的一帧
func (c *CaptureData) Record(inst *Instance) {
	t, steps := inst.Time()
	stats := inst.Stats()
	c.Frames = append(c.Frames, CaptureFrame{
		Step:      steps,
		Time:      t,
		Particles: stats.Particles,
		Dropped:   stats.Dropped,
		Records:   inst.AppendRecords(nil),
	})
}

// CaptureSerializer 捕获文件序列化器
//
// 文件格式：lz4 帧流，内容为 gob 编码的 CaptureData。
type CaptureSerializer struct{}

// NewCaptureSerializer 创建捕获序列化器实例
func NewCaptureSerializer() *CaptureSerializer {
	return &CaptureSerializer{}
}

// SaveCapture 保存捕获到文件
func (s *CaptureSerializer) SaveCapture(data *CaptureData, filePath string) error {
	if data == nil {
		return fmt.Errorf("capture data is nil")
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer file.Close()

	if err := s.Encode(data, file); err != nil {
		return err
	}

	log.Printf("[CaptureSerializer] Saved capture to %s: Effect=%s, Seed=%d, Frames=%d",
		filePath, data.Effect, data.Seed, len(data.Frames))
	return nil
}

// Encode 写入压缩后的捕获数据
func (s *CaptureSerializer) Encode(data *CaptureData, w io.Writer) error {
	if data.SaveTime.IsZero() {
		data.SaveTime = time.Now()
	}
	data.Version = CaptureVersion

	zw := lz4.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(data); err != nil {
		return fmt.Errorf("failed to encode capture data: %w", err)
	}
	// Close 负责写出最后的数据块和帧尾
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to flush capture stream: %w", err)
	}
	return nil
}

// LoadCapture 从文件加载捕获
//
// 会进行版本兼容性检查，如果版本不匹配返回错误。
func (s *CaptureSerializer) LoadCapture(filePath string) (*CaptureData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	defer file.Close()

	data, err := s.Decode(file)
	if err != nil {
		return nil, err
	}

	log.Printf("[CaptureSerializer] Loaded capture from %s: Effect=%s, Seed=%d, Frames=%d",
		filePath, data.Effect, data.Seed, len(data.Frames))
	return data, nil
}

// Decode 读取并校验压缩后的捕获数据
func (s *CaptureSerializer) Decode(r io.Reader) (*CaptureData, error) {
	var data CaptureData
	if err := gob.NewDecoder(lz4.NewReader(r)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode capture data: %w", err)
	}

	// 版本兼容性检查
	if data.Version != CaptureVersion {
		return nil, fmt.Errorf("incompatible capture version: %d (expected %d)",
			data.Version, CaptureVersion)
	}
	return &data, nil
}

// Diff 返回两个捕获第一处不同的帧序号，完全相同时返回 -1
func Diff(a, b *CaptureData) int {
	n := len(a.Frames)
	if len(b.Frames) < n {
		n = len(b.Frames)
	}
	for i := 0; i < n; i++ {
		if !framesEqual(&a.Frames[i], &b.Frames[i]) {
			return i
		}
	}
	if len(a.Frames) != len(b.Frames) {
		return n
	}
	return -1
}

func framesEqual(a, b *CaptureFrame) bool {
	if a.Step != b.Step || a.Time != b.Time || a.Particles != b.Particles ||
		a.Dropped != b.Dropped || len(a.Records) != len(b.Records) {
		return false
	}
	for i := range a.Records {
		if a.Records[i] != b.Records[i] {
			return false
		}
	}
	return true
}
