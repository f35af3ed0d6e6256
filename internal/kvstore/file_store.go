package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileStore 每个键一个 JSON 文件，供命令行使用
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore 创建文件存储，目录不存在时自动创建
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("文件存储目录不能为空")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Slot 返回绑定 key 的存储槽
func (s *FileStore) Slot(key string) Slot {
	return &fileSlot{
		key:    key,
		path:   filepath.Join(s.dir, fileName(key)),
		logger: s.logger,
	}
}

// fileName 将键转换为安全的文件名
func fileName(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key) + ".json"
}

type fileSlot struct {
	key    string
	path   string
	logger *zap.Logger
}

func (f *fileSlot) Key() string { return f.key }

func (f *fileSlot) Get(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", f.path, err)
	}
	return data, nil
}

// Set 先写临时文件再重命名，避免写一半的内容
func (f *fileSlot) Set(_ context.Context, value []byte) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("重命名 %s 失败: %w", tmp, err)
	}
	f.logger.Debug("文件存储已写入", zap.String("path", f.path), zap.Int("bytes", len(value)))
	return nil
}

func (f *fileSlot) Delete(_ context.Context) error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("删除 %s 失败: %w", f.path, err)
	}
	return nil
}
