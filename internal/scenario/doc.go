// Package scenario はスレッドプールの検証シナリオ実行機能を提供する。
//
// シナリオエンジンはプール、負荷生成器、イベントバスを連携させ、
// 全ジョブがちょうど一回ずつ実行されたこと、単一ワーカー時の投入順序、
// 停止にかかった時間、panic の件数を実行時に検証する。
//
// # 機能
//
// - シナリオ定義と実行
// - 定義済みプリセットシナリオ
// - 実行結果のレポート生成と合否判定
//
// # プリセットシナリオ
//
// - quick: 短時間の動作確認
// - stress: 複数プロデューサーからの高負荷投入
// - ordering: 1ワーカー・1プロデューサーでの FIFO 確認
// - slow: 時間のかかるジョブでの停止待ち確認
// - panic: panic するジョブを含む実行
//
// # 使用例
//
//	config := scenario.StressScenario()
//	engine := scenario.New(config)
//	result, err := engine.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package scenario
