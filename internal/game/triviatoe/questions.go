package triviatoe

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Question 一道选择题
type Question struct {
	Text    string   `yaml:"text" json:"text"`
	Choices []string `yaml:"choices" json:"choices"`
	Answer  int      `yaml:"answer" json:"-"`
}

//go:embed questions.yaml
var builtinQuestions []byte

// ParseQuestions 解析 YAML 题库
func ParseQuestions(data []byte) ([]Question, error) {
	var qs []Question
	if err := yaml.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("解析题库失败: %w", err)
	}
	for i, q := range qs {
		if q.Text == "" || len(q.Choices) < 2 {
			return nil, fmt.Errorf("第 %d 题缺少题干或选项", i+1)
		}
		if q.Answer < 0 || q.Answer >= len(q.Choices) {
			return nil, fmt.Errorf("第 %d 题答案越界: %d", i+1, q.Answer)
		}
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("题库为空")
	}
	return qs, nil
}

// BuiltinQuestions 内置题库
func BuiltinQuestions() []Question {
	qs, err := ParseQuestions(builtinQuestions)
	if err != nil {
		panic(err)
	}
	return qs
}
