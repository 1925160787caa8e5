// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 封装 agentroom 共享的 Redis 连接，供 redis 群组存储与
redis 事件发布器复用。

# 核心类型

  - Manager：持有 go-redis 客户端，负责连接、健康检查与关闭。
  - Config：地址、密码、键前缀、默认 TTL、连接池与 TLS 开关。
  - Stats：从 INFO 与 DBSIZE 解析出的命中数、键数量、内存与连接数。

# 主要能力

  - 字符串与 JSON 读写：Get/Set/GetJSON/SetJSON。
  - 带索引的原子写删：SaveIndexed/DeleteIndexed 用 MULTI 同时维护
    值与索引集合，群组列表依赖该集合。
  - 发布订阅：Publish/Subscribe。
  - 错误语义：ErrCacheMiss 与 IsCacheMiss，ErrClosed 表示已关闭。
*/
package cache
