package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将冻结后的配置输出为 JSON，便于核对坐标与尺寸。
func WriteDebugJSON(sheet *Sheet, path string) error {
	if sheet == nil {
		return nil
	}
	data, err := json.MarshalIndent(sheet, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
