package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectionStore はルール定義ファイルのセクション/キー・バリューのストア。
// YAMLのトップレベルマッピングをセクションとして読み、ファイル上の
// 出現順を保持する。値はすべて文字列として保持し、型付きゲッターで変換する。
type SectionStore struct {
	names    []string
	sections map[string]map[string]string
}

// LoadSectionStore はファイルからSectionStoreを読み込む
func LoadSectionStore(path string) (*SectionStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	store, err := ParseSectionStore(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return store, nil
}

// ParseSectionStore はYAMLバイト列からSectionStoreを組み立てる
func ParseSectionStore(data []byte) (*SectionStore, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	store := &SectionStore{sections: make(map[string]map[string]string)}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return store, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping of rule sections")
	}

	// yaml.Nodeで読むことでセクションの出現順を保持する
	for i := 0; i+1 < len(root.Content); i += 2 {
		nameNode := root.Content[i]
		bodyNode := root.Content[i+1]
		name := strings.TrimSpace(nameNode.Value)
		if bodyNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("section %q must be a mapping of keys to values", name)
		}

		section := make(map[string]string)
		for j := 0; j+1 < len(bodyNode.Content); j += 2 {
			keyNode := bodyNode.Content[j]
			valNode := bodyNode.Content[j+1]
			if valNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("section %q key %q must be a scalar value",
					name, keyNode.Value)
			}
			section[strings.TrimSpace(keyNode.Value)] = valNode.Value
		}

		if _, ok := store.sections[name]; !ok {
			store.names = append(store.names, name)
		}
		store.sections[name] = section
	}

	return store, nil
}

// Sections はセクション名をファイル上の出現順で返す
func (s *SectionStore) Sections() []string {
	return s.names
}

// GetString はセクションのキーの文字列値を返す。キーが無ければok=false
func (s *SectionStore) GetString(section, key string) (string, bool) {
	sect, ok := s.sections[section]
	if !ok {
		return "", false
	}
	v, ok := sect[key]
	return v, ok
}

// GetInt はキーの値を整数として返す。キーが無ければok=false、
// 値があるのに整数でなければエラー
func (s *SectionStore) GetInt(section, key string) (int64, bool, error) {
	v, ok := s.GetString(section, key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("Not an integer: %s", strings.TrimSpace(v))
	}
	return n, true, nil
}

// GetBool はキーの値を真偽値として返す。キーが無ければok=false、
// 値があるのに真偽値でなければエラー
func (s *SectionStore) GetBool(section, key string) (bool, bool, error) {
	v, ok := s.GetString(section, key)
	if !ok {
		return false, false, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "yes", "true", "on":
		return true, true, nil
	case "0", "no", "false", "off":
		return false, true, nil
	}
	return false, true, fmt.Errorf("Not a boolean: %s", strings.TrimSpace(v))
}

// GetStringList はカンマ区切りの値を文字列リストとして返す。
// stripQuotesが真なら各要素の前後の引用符を取り除く。空要素は読み飛ばす
func (s *SectionStore) GetStringList(section, key string, stripQuotes bool) []string {
	v, ok := s.GetString(section, key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if stripQuotes {
			item = strings.Trim(item, `'"`)
		}
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// GetIntList はカンマ区切りの値を整数リストとして返す。
// 整数に変換できない要素は黙って読み飛ばす（区切りの無い空行などを許容するため）
func (s *SectionStore) GetIntList(section, key string) []int64 {
	v, ok := s.GetString(section, key)
	if !ok {
		return nil
	}
	var out []int64
	for _, item := range strings.Split(v, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(item), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
