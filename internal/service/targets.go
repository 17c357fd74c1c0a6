package service

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// TargetSource 路由器清单，按行返回原始内容，过滤由 BatchRunner 负责
type TargetSource interface {
	// Rewind 回到清单开头
	Rewind() error
	// Next 返回下一行，结束时返回 io.EOF
	Next() (string, error)
}

// ReaderSource 基于可 Seek 的 Reader 的清单
type ReaderSource struct {
	r  io.ReadSeeker
	sc *bufio.Scanner
}

// NewReaderSource 创建清单
func NewReaderSource(r io.ReadSeeker) *ReaderSource {
	return &ReaderSource{r: r, sc: bufio.NewScanner(r)}
}

func (s *ReaderSource) Rewind() error {
	if _, err := s.r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind targets: %w", err)
	}
	s.sc = bufio.NewScanner(s.r)
	return nil
}

func (s *ReaderSource) Next() (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", fmt.Errorf("read targets: %w", err)
	}
	return "", io.EOF
}

// FileSource 文件清单，每行一个地址
type FileSource struct {
	*ReaderSource
	path string
	f    *os.File
}

// OpenFileSource 打开清单文件
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routers file: %w", err)
	}
	return &FileSource{ReaderSource: NewReaderSource(f), path: path, f: f}, nil
}

// Path 清单文件路径
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Close() error { return s.f.Close() }

// targetLine 清单中需要处理的一行
type targetLine struct {
	no  int
	raw string
}

// readTargets 从头读取清单，跳过空行与 # 注释
func readTargets(src TargetSource) ([]targetLine, error) {
	if err := src.Rewind(); err != nil {
		return nil, err
	}
	var out []targetLine
	for no := 1; ; no++ {
		raw, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		s := strings.TrimSpace(raw)
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, targetLine{no: no, raw: s})
	}
}
