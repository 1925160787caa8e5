// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理聊天室数据库 Schema，基于 golang-migrate，
支持 PostgreSQL、MySQL 与 SQLite。

# 概述

迁移文件通过 embed.FS 内嵌在 migrations/<方言>/ 下，目前只有一个版本
000001_create_room_tables，创建 room_groups（群组与成员 JSON）和
room_messages（按 group_name + seq 排序的对话记录，随群组级联删除）。
表结构与 agent/persistence 中 gorm 模型一致，生产环境用迁移建表，
测试与快速体验可以直接调用 DatabaseGroupStore.AutoMigrate。

# 核心类型

  - Migrator：Up/Down/DownAll/Steps/Goto/Force/Version/Status/Info/Close。
  - DefaultMigrator：默认实现。ctx 取消时通过 GracefulStop 在当前文件
    执行完后停止，日志经 zap 输出。
  - CLI：agentroom migrate 子命令的输出层，状态表格使用 tablewriter。

SQLite 连接使用纯 Go 的 glebarez 驱动（注册名 "sqlite"），无需 cgo。
*/
package migration
