// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 agentroom 服务端与客户端命令行入口。

# 概述

cmd/agentroom 基于 cobra 组织子命令：serve 启动聊天室 HTTP API、WebSocket
事件流与 Prometheus 指标端口；migrate 管理 store.type=database 使用的表结构；
groups、agents、chat 通过 HTTP 调用运行中的服务。

# 核心类型

  - Server      — 按依赖顺序组装存储、Agent 名册、事件分发与两个 HTTP 服务器
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - apiClient   — 客户端命令使用的 API 客户端，解析统一响应结构

# 主要能力

  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、Metrics、
    RequestLogger、CORS、MaxBodyBytes、RateLimiter、JWTAuth 或 APIKeyAuth
  - 配置热重载：配置文件中的 agents 变更后增量更新 Agent 名册
  - 优雅关闭：信号 → 停止热重载 → 关闭 API（同时断开 WebSocket）→ 关闭 Metrics
    → 关闭事件发布器 → 关闭存储与连接 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
