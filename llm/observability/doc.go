// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 observability 为 LLM 调用提供追踪与指标。

# 核心类型

  - Metrics：基于 OpenTelemetry Meter / Tracer，记录请求数、Token 数、
    错误数、延迟直方图与活跃请求数，并为每次调用创建 llm.completion span
  - InstrumentedProvider：包装 llm.Provider，每次 Completion 同时写入
    Metrics 与 Recorder（Prometheus Collector）
  - WithAgent / AgentFromContext：在 ctx 上标记发起调用的 Agent alias，
    用作 span 属性与日志字段
*/
package observability
