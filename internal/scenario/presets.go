package scenario

import (
	"time"
)

// QuickScenario はクイックテスト用シナリオを返す
// 短時間での動作確認用
func QuickScenario() Config {
	return Config{
		Name:          "quick",
		Description:   "Quick test for verification",
		Workers:       4,
		Producers:     2,
		Jobs:          100,
		TeardownBound: 5 * time.Second,
	}
}

// StressScenario は高負荷シナリオを返す
// 多数のプロデューサーから並行投入する
func StressScenario() Config {
	return Config{
		Name:          "stress",
		Description:   "Concurrent submission from many producers",
		Workers:       4,
		Producers:     8,
		Jobs:          1000,
		TeardownBound: 10 * time.Second,
	}
}

// OrderingScenario は FIFO 確認シナリオを返す
// 1ワーカー・1プロデューサーで投入順に実行されることを確認する
func OrderingScenario() Config {
	return Config{
		Name:          "ordering",
		Description:   "Single worker, single producer FIFO ordering",
		Workers:       1,
		Producers:     1,
		Jobs:          200,
		TeardownBound: 5 * time.Second,
	}
}

// SlowScenario は実行時間のあるジョブのシナリオを返す
// 停止が実行中ジョブの完了を待ち、かつ上限時間内に終わることを確認する
func SlowScenario() Config {
	return Config{
		Name:          "slow",
		Description:   "Bounded-time jobs; teardown waits for them",
		Workers:       4,
		Producers:     1,
		Jobs:          8,
		JobDuration:   100 * time.Millisecond,
		TeardownBound: 2 * time.Second,
	}
}

// PanicScenario は panic するジョブを含むシナリオを返す
func PanicScenario() Config {
	return Config{
		Name:          "panic",
		Description:   "Every tenth job panics; workers must survive",
		Workers:       2,
		Producers:     2,
		Jobs:          100,
		PanicEvery:    10,
		TeardownBound: 5 * time.Second,
	}
}

// GetPreset は名前からプリセットシナリオを取得する
func GetPreset(name string) (Config, bool) {
	presets := map[string]func() Config{
		"quick":    QuickScenario,
		"stress":   StressScenario,
		"ordering": OrderingScenario,
		"slow":     SlowScenario,
		"panic":    PanicScenario,
	}

	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets は利用可能なプリセット名を返す
func ListPresets() []string {
	return []string{"quick", "stress", "ordering", "slow", "panic"}
}
