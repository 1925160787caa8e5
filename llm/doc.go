// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供聊天室使用的大语言模型接入层。

# 概述

Agent 只需要一件事：把渲染好的提示词发给模型并拿回文本。本包把这件事
抽象为 [Provider]，屏蔽 OpenAI 与 Azure OpenAI 在 URL、鉴权与错误语义上的差异。

# 核心接口

  - [Provider]：Completion / HealthCheck / Name
  - [Complete]：以单条 system 消息发送提示词并返回第一个 choice

# 错误

上游失败统一映射为 [Error]，[MapHTTPError] 负责 HTTP 状态码到 [ErrorCode]
与可重试性的转换。[NewRetryProvider] 以指数退避重试 Retryable 的错误，
其余错误立即返回。

# 子包

  - providers/openaicompat：OpenAI / Azure OpenAI 实现
  - tokenizer：token 计数与历史裁剪
*/
package llm
