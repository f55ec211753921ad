package risk

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// blacklistFile 对应 configs/blacklist.yaml 的文件结构。
type blacklistFile struct {
	Listings []Listing `yaml:"listings"`
}

// StaticReputationSource 从 YAML 文件加载静态地址声誉库，查询纯内存完成。
type StaticReputationSource struct {
	listings map[string]Listing
}

// NewStaticReputationSource 用给定条目构建声誉库。地址统一小写后索引。
func NewStaticReputationSource(listings []Listing) *StaticReputationSource {
	index := make(map[string]Listing, len(listings))
	for _, listing := range listings {
		address := strings.ToLower(strings.TrimSpace(listing.Address))
		if address == "" {
			continue
		}
		index[address] = listing
	}
	return &StaticReputationSource{listings: index}
}

// LoadStaticReputationSource 解析 YAML 声誉库文件。
func LoadStaticReputationSource(path string) (*StaticReputationSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("声誉库文件路径不能为空")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取声誉库文件失败: %w", err)
	}

	var file blacklistFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("解析声誉库文件失败: %w", err)
	}
	return NewStaticReputationSource(file.Listings), nil
}

// Lookup 实现 ReputationSource 接口。
func (s *StaticReputationSource) Lookup(_ context.Context, address string) (Listing, bool, error) {
	if s == nil {
		return Listing{}, false, nil
	}
	listing, ok := s.listings[strings.ToLower(strings.TrimSpace(address))]
	return listing, ok, nil
}

// Size 返回声誉库收录的地址数量。
func (s *StaticReputationSource) Size() int {
	if s == nil {
		return 0
	}
	return len(s.listings)
}

var _ ReputationSource = (*StaticReputationSource)(nil)
