// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 提供群组记录 {name, agents, conversation} 的持久化抽象及多后端实现。

# 概述

群聊核心（conversation.Group）只操作内存中的对话，不直接写存储；
conversation.Manager 在每次变更后通过 GroupStore 保存整条记录。
Save 是整条记录的 upsert，对话被替换而不是合并。

# 核心接口

  - Store: 所有存储的基础接口，提供 Close 和 Ping 健康检查。
  - GroupStore: Save / Load / Delete / List，不存在时返回 ErrNotFound。
  - OpRecorder: 接收每次调用的耗时与结果，由指标采集器实现。

# 后端实现

  - Memory: 内存实现，适合开发与测试，重启后数据丢失。
  - File: 每个群组一个 JSON 文件，临时文件加 rename 原子写入。
  - Redis: 复用 internal/cache.Manager，值与索引集合在同一个 MULTI 中维护。
  - Database: gorm（postgres / mysql / sqlite），room_groups 与 room_messages 两张表，
    表结构由 internal/migration 管理。
  - Badger: 嵌入式 KV，支持纯内存模式。
  - Mongo: 每个群组一个文档，_id 为群组名。

# 使用方式

	store, err := persistence.NewGroupStore(config, persistence.Deps{Redis: redisManager})

工厂返回的存储都经过 InstrumentedStore 包装：按 OpTimeout 限时并上报耗时。
*/
package persistence
