// Package cmd wires the command-line interface: serve runs the HTTP API
// server, index bulk-loads the food table, version prints build info.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "matchmeal",
	Short: "matchmeal - AI 영양 코칭 서버",
	Long: `matchmeal은 식단 기록 앱을 위한 AI 영양 코칭 백엔드입니다.

기간별 식단 피드백, 맞춤 메뉴 추천, 식단 구성, 대화형 코칭과
음식 사진 분석 프록시를 HTTP API로 제공합니다.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Running without a subcommand starts the server.
		return runServe()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
