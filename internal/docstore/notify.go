package docstore

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// encodeNotification 把快照编码为 protobuf Struct。
// 文档内容按展开后的 JSON 叶子传输，保证整数在订阅端仍是 int64。
func encodeNotification(snap *Snapshot) ([]byte, error) {
	flat := make(map[string]string)
	if snap.Exists && len(snap.Data) > 0 {
		if err := flatten("", snap.Data, flat); err != nil {
			return nil, err
		}
	}
	fields := make(map[string]*structpb.Value, len(flat))
	for f, raw := range flat {
		fields[f] = structpb.NewStringValue(raw)
	}

	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		"key":    structpb.NewStringValue(snap.Key),
		"rev":    structpb.NewNumberValue(float64(snap.Rev)),
		"exists": structpb.NewBoolValue(snap.Exists),
		"fields": structpb.NewStructValue(&structpb.Struct{Fields: fields}),
	}}
	return proto.Marshal(msg)
}

// decodeNotification 解析变更通知
func decodeNotification(data []byte) (*Snapshot, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("docstore: unmarshal notification: %w", err)
	}

	key := msg.GetFields()["key"].GetStringValue()
	if key == "" {
		return nil, fmt.Errorf("docstore: notification without key")
	}
	snap := &Snapshot{
		Key:    key,
		Rev:    int64(msg.GetFields()["rev"].GetNumberValue()),
		Exists: msg.GetFields()["exists"].GetBoolValue(),
		Data:   Doc{},
	}
	if !snap.Exists {
		return snap, nil
	}

	flat := make(map[string]string)
	for f, v := range msg.GetFields()["fields"].GetStructValue().GetFields() {
		flat[f] = v.GetStringValue()
	}
	doc, err := unflatten(flat)
	if err != nil {
		return nil, err
	}
	snap.Data = doc
	return snap, nil
}
