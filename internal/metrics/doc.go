// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖 HTTP、LLM、
群聊编排、群组存储与数据库连接池。

# 核心类型

  - Collector：指标收集器，通过 promauto.With 注册到给定 Registry。
    它同时实现 conversation.Observer 与 persistence.OpRecorder，
    可直接挂到 Manager 和存储装饰器上。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx
  - LLM 指标：请求总数、耗时、Token 用量（prompt/completion）
  - 群聊指标：追加消息数、投票（计入/弃权）、Agent 失败、每次发送的轮数、
    终止原因与耗时
  - 存储指标：按 backend/operation 的耗时与失败次数，ErrNotFound 不计为失败
  - 数据库指标：打开/空闲连接数 Gauge
*/
package metrics
