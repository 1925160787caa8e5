// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// Package telemetry 初始化 OpenTelemetry SDK（OTLP gRPC 导出 trace 与 metric），
// 并注册为全局 Provider。聊天室各操作的 span 都从全局 Provider 创建，
// 未启用时保持 noop，不连接任何外部服务。
package telemetry
